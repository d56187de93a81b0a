package service

import (
	"context"

	"github.com/gastrack/cylinderbill/internal/config"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	"github.com/gastrack/cylinderbill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Locations locationdomain.Service
	Settings  settingsdomain.Service
	Billing   *config.BillingConfigHolder
}

type Resolver struct {
	log       *zap.Logger
	locations locationdomain.Service
	settings  settingsdomain.Service
	billing   *config.BillingConfigHolder
}

func New(p Params) domain.Resolver {
	return &Resolver{
		log:       p.Log.Named("tax.resolver"),
		locations: p.Locations,
		settings:  p.Settings,
		billing:   p.Billing,
	}
}

func (r *Resolver) Resolve(ctx context.Context, rental *rentaldomain.Rental) domain.Resolution {
	if rental != nil && rental.Location != "" {
		// locations store a percentage, rates everywhere else are fractions
		location, err := r.locations.GetByName(ctx, rental.Location)
		if err != nil {
			r.log.Warn("location lookup failed, continuing down the chain",
				zap.String("location", rental.Location),
				zap.Error(err),
			)
		} else if location != nil && location.TotalTaxRate > 0 {
			return domain.Resolution{
				Rate:   location.TotalTaxRate / 100,
				Source: domain.SourceLocation,
			}
		}
	}

	if rental != nil && rental.TaxRate != nil && *rental.TaxRate > 0 {
		return domain.Resolution{Rate: *rental.TaxRate, Source: domain.SourceRental}
	}

	settings, err := r.settings.Get(ctx)
	if err != nil {
		r.log.Warn("settings lookup failed, using fallback rate", zap.Error(err))
	} else if settings.DefaultTaxRate != nil && *settings.DefaultTaxRate > 0 {
		return domain.Resolution{Rate: *settings.DefaultTaxRate, Source: domain.SourceSettings}
	}

	return domain.Resolution{
		Rate:   r.billing.Get().FallbackTaxRate,
		Source: domain.SourceFallback,
	}
}
