package lease

import (
	"github.com/gastrack/cylinderbill/internal/lease/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lease.service",
	fx.Provide(service.New),
)
