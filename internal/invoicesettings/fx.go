package invoicesettings

import (
	"github.com/gastrack/cylinderbill/internal/invoicesettings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoicesettings.service",
	fx.Provide(service.New),
)
