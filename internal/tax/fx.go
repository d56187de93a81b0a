package tax

import (
	"github.com/gastrack/cylinderbill/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.resolver",
	fx.Provide(service.New),
)
