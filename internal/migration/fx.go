package migration

import (
	"github.com/gastrack/cylinderbill/internal/config"
	customerdomain "github.com/gastrack/cylinderbill/internal/customer/domain"
	invoicedomain "github.com/gastrack/cylinderbill/internal/invoice/domain"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
	orgdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&orgdomain.Organization{},
			&customerdomain.Customer{},
			&locationdomain.Location{},
			&leasedomain.LeaseAgreement{},
			&leasedomain.BillingRecord{},
			&rentaldomain.Rental{},
			&settingsdomain.InvoiceSettings{},
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceItem{},
		)
	}),
)
