package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/billing"
	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	"github.com/gastrack/cylinderbill/internal/lease/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Settings settingsdomain.Service
	Billing  *config.BillingConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	settings settingsdomain.Service
	billing  *config.BillingConfigHolder
	genID    *snowflake.Node
	repo     repository.Repository[domain.LeaseAgreement]
	records  repository.Repository[domain.BillingRecord]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("lease.service"),
		clock:    p.Clock,
		settings: p.Settings,
		billing:  p.Billing,
		genID:    p.GenID,
		repo:     repository.ProvideStore[domain.LeaseAgreement](p.DB),
		records:  repository.ProvideStore[domain.BillingRecord](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLeaseRequest) (domain.LeaseAgreement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.LeaseAgreement{}, domain.ErrInvalidOrganization
	}

	frequency, ok := billing.ParseBillingFrequency(req.BillingFrequency)
	if !ok {
		return domain.LeaseAgreement{}, domain.ErrInvalidFrequency
	}
	if !req.EndDate.After(req.StartDate) {
		return domain.LeaseAgreement{}, domain.ErrInvalidDateRange
	}

	var customerID snowflake.ID
	if req.CustomerID != "" {
		id, err := snowflake.ParseString(req.CustomerID)
		if err != nil {
			return domain.LeaseAgreement{}, domain.ErrInvalidCustomer
		}
		customerID = id
	}
	if customerID == 0 && strings.TrimSpace(req.CustomerName) == "" {
		return domain.LeaseAgreement{}, domain.ErrInvalidCustomer
	}

	nextBilling := req.StartDate
	lease := domain.LeaseAgreement{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		CustomerID:       customerID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		BillingFrequency: string(frequency),
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AnnualAmount:     req.AnnualAmount,
		TaxRate:          req.TaxRate,
		PaymentTerms:     strings.TrimSpace(req.PaymentTerms),
		NextBillingDate:  &nextBilling,
		Status:           domain.LeaseStatusActive,
	}

	// The agreement number comes from the same locked sequence the
	// invoice numbers use, so creations never collide.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numbers, err := s.settings.ReserveAgreementNumbers(ctx, tx, orgID, 1)
		if err != nil {
			return err
		}
		lease.AgreementNumber = numbers[0]
		return tx.Create(&lease).Error
	})
	if err != nil {
		s.log.Error("failed to create lease agreement", zap.Error(err))
		return domain.LeaseAgreement{}, err
	}

	s.log.Info("lease agreement created",
		zap.String("agreement_number", lease.AgreementNumber),
		zap.String("billing_frequency", lease.BillingFrequency),
	)
	return lease, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLeaseRequest) ([]domain.LeaseAgreement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if req.CustomerID != "" {
		id, err := snowflake.ParseString(req.CustomerID)
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		query = query.Where("customer_id = ?", id)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var items []domain.LeaseAgreement
	if err := query.Order("start_date DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.LeaseAgreement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.LeaseAgreement{}, domain.ErrInvalidOrganization
	}

	leaseID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.LeaseAgreement{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &domain.LeaseAgreement{ID: leaseID, OrgID: orgID})
	if err != nil {
		return domain.LeaseAgreement{}, err
	}
	if item == nil {
		return domain.LeaseAgreement{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateLeaseRequest) (domain.LeaseAgreement, error) {
	lease, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.LeaseAgreement{}, err
	}

	if req.BillingFrequency != nil {
		frequency, ok := billing.ParseBillingFrequency(*req.BillingFrequency)
		if !ok {
			return domain.LeaseAgreement{}, domain.ErrInvalidFrequency
		}
		lease.BillingFrequency = string(frequency)
	}
	if req.EndDate != nil {
		if !req.EndDate.After(lease.StartDate) {
			return domain.LeaseAgreement{}, domain.ErrInvalidDateRange
		}
		lease.EndDate = *req.EndDate
	}
	if req.AnnualAmount != nil {
		lease.AnnualAmount = *req.AnnualAmount
	}
	if req.TaxRate != nil {
		lease.TaxRate = req.TaxRate
	}
	if req.PaymentTerms != nil {
		lease.PaymentTerms = strings.TrimSpace(*req.PaymentTerms)
	}
	if req.Status != nil {
		lease.Status = *req.Status
	}
	lease.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, lease.ID.String(), &lease); err != nil {
		return domain.LeaseAgreement{}, err
	}
	return lease, nil
}

// FindActiveForCustomer matches by customer id first, then falls back
// to an exact name match for imported agreements that were never
// linked. Ties within a rank break toward the most recent start date.
func (s *Service) FindActiveForCustomer(ctx context.Context, customerID snowflake.ID, customerName string) (*domain.LeaseAgreement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Where("org_id = ?", orgID).
			Where("status = ?", domain.LeaseStatusActive).
			Order("start_date DESC").
			Limit(1)
	}

	var items []domain.LeaseAgreement
	if customerID != 0 {
		if err := base().Where("customer_id = ?", customerID).Find(&items).Error; err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return &items[0], nil
		}
	}

	name := strings.TrimSpace(customerName)
	if name == "" {
		return nil, nil
	}
	if err := base().Where("LOWER(customer_name) = LOWER(?)", name).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return &items[0], nil
	}
	return nil, nil
}

// ProcessDueBilling sweeps active agreements whose next billing date
// has arrived, records one history row per agreement and advances the
// schedule by one period. Failures are reported per agreement; one bad
// row never aborts the sweep.
func (s *Service) ProcessDueBilling(ctx context.Context) ([]domain.DueBillingResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	today := dateOf(s.clock.Now())

	var due []domain.LeaseAgreement
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Where("status = ?", domain.LeaseStatusActive).
		Where("next_billing_date IS NOT NULL AND next_billing_date <= ?", today).
		Order("next_billing_date ASC").
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	results := make([]domain.DueBillingResult, 0, len(due))
	for i := range due {
		lease := due[i]
		result := domain.DueBillingResult{AgreementNumber: lease.AgreementNumber}

		invoiceNumber, err := s.billOne(ctx, &lease, today)
		if err != nil {
			s.log.Warn("lease billing failed",
				zap.String("agreement_number", lease.AgreementNumber),
				zap.Error(err),
			)
			result.Error = err.Error()
		} else {
			result.Processed = true
			result.InvoiceNumber = invoiceNumber
			result.NextBillingDate = lease.NextBillingDate
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) billOne(ctx context.Context, lease *domain.LeaseAgreement, today time.Time) (string, error) {
	frequency, ok := billing.ParseBillingFrequency(lease.BillingFrequency)
	if !ok {
		return "", domain.ErrInvalidFrequency
	}

	periodMonths := frequency.MonthsPerPeriod()
	periodStart := dateOf(*lease.NextBillingDate)
	periodEnd := periodStart.AddDate(0, periodMonths, -1)

	subtotal := lease.AnnualAmount.
		Div(decimal.NewFromInt(int64(frequency.PeriodsPerYear()))).
		Round(2)
	taxAmount := decimal.Zero
	if lease.TaxRate != nil {
		taxAmount = subtotal.Mul(decimal.NewFromFloat(*lease.TaxRate)).Round(2)
	}
	dueDate := today.AddDate(0, 0, dueDays(lease.PaymentTerms, s.billing.Get().DefaultDueDays))

	record := domain.BillingRecord{
		ID:            s.genID.Generate(),
		OrgID:         lease.OrgID,
		LeaseID:       lease.ID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		BillingDate:   today,
		DueDate:       dueDate,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		TotalAmount:   subtotal.Add(taxAmount),
		PaymentStatus: "pending",
	}

	next := periodStart.AddDate(0, periodMonths, 0)
	lease.LastBillingDate = &today
	if dateOf(next).After(dateOf(lease.EndDate)) {
		// final period billed; the agreement runs out, not over
		lease.NextBillingDate = nil
		lease.Status = domain.LeaseStatusExpired
	} else {
		lease.NextBillingDate = &next
	}
	lease.UpdatedAt = s.clock.Now()

	// The record carries a real invoice number from the org's locked
	// sequence, reserved in the same transaction as the insert.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numbers, err := s.settings.ReserveInvoiceNumbers(ctx, tx, lease.OrgID, 1)
		if err != nil {
			return err
		}
		record.InvoiceNumber = numbers[0]
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Save(lease).Error
	})
	if err != nil {
		return "", err
	}
	return record.InvoiceNumber, nil
}

// dueDays parses Net-N payment terms ("Net 30", "net30", "NET 45").
// Anything unrecognized falls back to the configured default.
func dueDays(terms string, fallback int) int {
	trimmed := strings.TrimSpace(strings.ToLower(terms))
	if trimmed == "" {
		return fallback
	}
	trimmed = strings.TrimPrefix(trimmed, "net")
	trimmed = strings.TrimSpace(trimmed)
	if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
		return n
	}
	return fallback
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
