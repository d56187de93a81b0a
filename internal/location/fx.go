package location

import (
	"github.com/gastrack/cylinderbill/internal/location/service"
	"go.uber.org/fx"
)

var Module = fx.Module("location.service",
	fx.Provide(service.New),
)
