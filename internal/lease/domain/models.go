// Package domain contains lease agreement models: the contractual
// annual/semi-annual billing arrangements that override default
// monthly billing.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/billing"
	"github.com/shopspring/decimal"
)

type LeaseStatus string

const (
	LeaseStatusActive   LeaseStatus = "active"
	LeaseStatusExpired  LeaseStatus = "expired"
	LeaseStatusCanceled LeaseStatus = "canceled"
)

// LeaseAgreement is one customer contract. BillingFrequency is stored
// normalized; free text is rejected at the boundary, never re-parsed
// downstream. CustomerName is denormalized to keep the ranked lookup
// working against rows imported with a name but no linked customer id.
type LeaseAgreement struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	CustomerID       snowflake.ID    `gorm:"index" json:"customer_id"`
	CustomerName     string          `gorm:"type:text;index" json:"customer_name,omitempty"`
	AgreementNumber  string          `gorm:"not null;uniqueIndex" json:"agreement_number"`
	BillingFrequency string          `gorm:"type:text;not null" json:"billing_frequency"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	EndDate          time.Time       `gorm:"not null" json:"end_date"`
	AnnualAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"annual_amount"`
	TaxRate          *float64        `gorm:"type:numeric(6,4)" json:"tax_rate,omitempty"`
	PaymentTerms     string          `gorm:"type:text" json:"payment_terms,omitempty"`
	NextBillingDate  *time.Time      `gorm:"index" json:"next_billing_date,omitempty"`
	LastBillingDate  *time.Time      `gorm:"" json:"last_billing_date,omitempty"`
	Status           LeaseStatus     `gorm:"type:text;not null;default:'active';index" json:"status"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (LeaseAgreement) TableName() string { return "lease_agreements" }

// ToBilling converts the stored row into the engine's lease value.
func (l *LeaseAgreement) ToBilling() *billing.LeaseAgreement {
	if l == nil {
		return nil
	}
	frequency, _ := billing.ParseBillingFrequency(l.BillingFrequency)
	return &billing.LeaseAgreement{
		ID:               l.ID.String(),
		AgreementNumber:  l.AgreementNumber,
		BillingFrequency: frequency,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
	}
}

// BillingRecord is one row of lease billing history, produced by the
// due-billing sweep.
type BillingRecord struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	LeaseID       snowflake.ID    `gorm:"not null;index" json:"lease_agreement_id"`
	PeriodStart   time.Time       `gorm:"not null" json:"billing_period_start"`
	PeriodEnd     time.Time       `gorm:"not null" json:"billing_period_end"`
	BillingDate   time.Time       `gorm:"not null" json:"billing_date"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaymentStatus string          `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	InvoiceNumber string          `gorm:"type:text" json:"invoice_number,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BillingRecord) TableName() string { return "lease_billing_history" }

type CreateLeaseRequest struct {
	CustomerID       string
	CustomerName     string
	BillingFrequency string
	StartDate        time.Time
	EndDate          time.Time
	AnnualAmount     decimal.Decimal
	TaxRate          *float64
	PaymentTerms     string
}

type UpdateLeaseRequest struct {
	BillingFrequency *string
	EndDate          *time.Time
	AnnualAmount     *decimal.Decimal
	TaxRate          *float64
	PaymentTerms     *string
	Status           *LeaseStatus
}

type ListLeaseRequest struct {
	CustomerID string
	Status     LeaseStatus
}

// DueBillingResult reports one agreement processed by the due-billing
// sweep.
type DueBillingResult struct {
	AgreementNumber string     `json:"agreement_number"`
	InvoiceNumber   string     `json:"invoice_number,omitempty"`
	Processed       bool       `json:"processed"`
	Error           string     `json:"error,omitempty"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
}

type Service interface {
	Create(context.Context, CreateLeaseRequest) (LeaseAgreement, error)
	List(context.Context, ListLeaseRequest) ([]LeaseAgreement, error)
	GetByID(ctx context.Context, id string) (LeaseAgreement, error)
	Update(ctx context.Context, id string, req UpdateLeaseRequest) (LeaseAgreement, error)

	// FindActiveForCustomer is the ranked lookup: active agreements are
	// matched by customer id first, then by customer name. At most one
	// candidate is returned; the billing engine never searches itself.
	FindActiveForCustomer(ctx context.Context, customerID snowflake.ID, customerName string) (*LeaseAgreement, error)

	// ProcessDueBilling creates billing history for every active
	// agreement whose next billing date has arrived and advances the
	// agreement's schedule.
	ProcessDueBilling(ctx context.Context) ([]DueBillingResult, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidFrequency    = errors.New("invalid_billing_frequency")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
