package providers

import (
	"github.com/gastrack/cylinderbill/internal/providers/email"
	"github.com/gastrack/cylinderbill/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
