// Package server wires the HTTP surface: gin engine, middleware, and
// the REST handlers for every feature service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gastrack/cylinderbill/internal/config"
	"github.com/gastrack/cylinderbill/internal/customer"
	customerdomain "github.com/gastrack/cylinderbill/internal/customer/domain"
	"github.com/gastrack/cylinderbill/internal/invoice"
	invoicedomain "github.com/gastrack/cylinderbill/internal/invoice/domain"
	"github.com/gastrack/cylinderbill/internal/invoicesettings"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	"github.com/gastrack/cylinderbill/internal/lease"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	"github.com/gastrack/cylinderbill/internal/location"
	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
	"github.com/gastrack/cylinderbill/internal/organization"
	organizationdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	"github.com/gastrack/cylinderbill/internal/providers"
	"github.com/gastrack/cylinderbill/internal/rental"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	"github.com/gastrack/cylinderbill/internal/tax"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	organization.Module,
	customer.Module,
	location.Module,
	rental.Module,
	lease.Module,
	invoicesettings.Module,
	tax.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	genID  *snowflake.Node

	organizationSvc organizationdomain.Service
	customerSvc     customerdomain.Service
	locationSvc     locationdomain.Service
	rentalSvc       rentaldomain.Service
	leaseSvc        leasedomain.Service
	settingsSvc     settingsdomain.Service
	invoiceSvc      invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	Log   *zap.Logger
	GenID *snowflake.Node

	OrganizationSvc organizationdomain.Service
	CustomerSvc     customerdomain.Service
	LocationSvc     locationdomain.Service
	RentalSvc       rentaldomain.Service
	LeaseSvc        leasedomain.Service
	SettingsSvc     settingsdomain.Service
	InvoiceSvc      invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		genID:           p.GenID,
		organizationSvc: p.OrganizationSvc,
		customerSvc:     p.CustomerSvc,
		locationSvc:     p.LocationSvc,
		rentalSvc:       p.RentalSvc,
		leaseSvc:        p.LeaseSvc,
		settingsSvc:     p.SettingsSvc,
		invoiceSvc:      p.InvoiceSvc,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/organizations", s.CreateOrganization)
	v1.GET("/organizations/:id", s.GetOrganization)
	v1.PATCH("/organizations/:id", s.UpdateOrganization)

	org := v1.Group("", s.OrgContext())
	{
		org.POST("/customers", s.CreateCustomer)
		org.GET("/customers", s.ListCustomers)
		org.GET("/customers/:id", s.GetCustomer)
		org.PATCH("/customers/:id", s.UpdateCustomer)
		org.DELETE("/customers/:id", s.DeleteCustomer)

		org.POST("/locations", s.CreateLocation)
		org.GET("/locations", s.ListLocations)
		org.PATCH("/locations/:id", s.UpdateLocation)

		org.POST("/rentals", s.CreateRental)
		org.GET("/rentals", s.ListRentals)
		org.GET("/rentals/:id", s.GetRental)
		org.PATCH("/rentals/:id", s.UpdateRental)
		org.POST("/rentals/:id/end", s.EndRental)

		org.POST("/leases", s.CreateLease)
		org.GET("/leases", s.ListLeases)
		org.GET("/leases/:id", s.GetLease)
		org.PATCH("/leases/:id", s.UpdateLease)
		org.POST("/leases/process-due", s.ProcessDueLeaseBilling)

		org.GET("/settings/invoicing", s.GetInvoiceSettings)
		org.PATCH("/settings/invoicing", s.UpdateInvoiceSettings)

		org.POST("/invoices/generate", s.GenerateInvoice)
		org.GET("/invoices", s.ListInvoices)
		org.GET("/invoices/export", s.ExportInvoicesCSV)
		org.GET("/invoices/:id", s.GetInvoice)
		org.GET("/invoices/:id/pdf", s.GetInvoicePDF)
		org.POST("/invoices/:id/send", s.SendInvoice)
		org.POST("/invoices/:id/pay", s.MarkInvoicePaid)
		org.POST("/invoices/:id/void", s.VoidInvoice)
	}
}
