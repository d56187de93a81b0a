package rental

import (
	"github.com/gastrack/cylinderbill/internal/rental/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rental.service",
	fx.Provide(service.New),
)
