// Package domain contains the invoice models and the generation
// contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/billing"
	"github.com/gastrack/cylinderbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// Invoice is one persisted invoice header. Monetary columns hold the
// rounded presentation figures; Total is always Subtotal + TaxAmount.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	CustomerID    snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	CustomerName  string          `gorm:"type:text" json:"customer_name"`
	InvoiceNumber string          `gorm:"not null;uniqueIndex" json:"invoice_number"`
	InvoiceDate   time.Time       `gorm:"not null;index" json:"invoice_date"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	PeriodStart   time.Time       `gorm:"not null" json:"billing_period_start"`
	PeriodEnd     time.Time       `gorm:"not null" json:"billing_period_end"`
	IsYearly      bool            `gorm:"not null;default:false" json:"is_yearly"`
	MonthsCharged int             `gorm:"not null;default:1" json:"months_charged"`
	UnitCount     int             `gorm:"not null;default:0" json:"unit_count"`
	LeaseID       *snowflake.ID   `gorm:"index" json:"lease_id,omitempty"`
	AgreementNum  string          `gorm:"type:text" json:"agreement_number,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status        InvoiceStatus   `gorm:"type:text;not null;default:'draft';index" json:"status"`
	EmailedAt     *time.Time      `gorm:"" json:"emailed_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one billed cylinder. DaysHeld is informational and
// never part of the arithmetic behind LineTotal.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	RentalID    snowflake.ID    `gorm:"index" json:"rental_id,omitempty"`
	UnitID      string          `gorm:"not null" json:"unit_id"`
	ProductCode string          `gorm:"type:text" json:"product_code,omitempty"`
	GasType     string          `gorm:"type:text" json:"gas_type,omitempty"`
	Size        string          `gorm:"type:text" json:"size,omitempty"`
	MonthlyRate decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"monthly_rate"`
	Months      int             `gorm:"not null;default:1" json:"months"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	DaysHeld    int             `gorm:"not null;default:0" json:"days_held"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// GenerateRequest asks for one invoice covering all of a customer's
// active rentals. PeriodStart/PeriodEnd are the operator-entered
// window; lease-derived periods take precedence over them.
type GenerateRequest struct {
	CustomerID  string
	InvoiceDate time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time

	// MonthlyRate overrides the configured default when positive.
	MonthlyRate *float64
}

// GenerateResult pairs the persisted invoice with the calculation
// warnings that surfaced while producing it.
type GenerateResult struct {
	Invoice  Invoice           `json:"invoice"`
	Warnings []billing.Warning `json:"warnings,omitempty"`
}

type ListInvoiceRequest struct {
	CustomerID string
	Status     InvoiceStatus
	DateFrom   time.Time
	DateTo     time.Time

	PageToken string
	PageSize  int32
}

type ListInvoiceResponse struct {
	Invoices []Invoice            `json:"invoices"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

// SendRequest emails one invoice, PDF attached. Recipient defaults to
// the customer's email on file.
type SendRequest struct {
	InvoiceID string
	Recipient string
}

type Service interface {
	// Generate runs the full pipeline: active rentals, ranked lease
	// lookup, the three calculation stages, tax resolution, number
	// reservation and persistence. Header, items and counter advance
	// commit in one transaction; there are no partial invoices.
	Generate(context.Context, GenerateRequest) (GenerateResult, error)

	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	MarkPaid(ctx context.Context, id string) (Invoice, error)
	Void(ctx context.Context, id string) (Invoice, error)

	// RenderPDF renders the stored invoice; it recomputes nothing.
	RenderPDF(ctx context.Context, id string) ([]byte, error)

	// Send emails the invoice with its PDF attached and stamps
	// EmailedAt on success.
	Send(ctx context.Context, req SendRequest) (Invoice, error)

	// ExportCSV renders the matching invoices as a UTF-8 CSV with a
	// byte-order mark, for spreadsheet import.
	ExportCSV(ctx context.Context, req ListInvoiceRequest) ([]byte, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrNoActiveRentals     = errors.New("no_active_rentals")
	ErrNoRecipient         = errors.New("no_recipient")
	ErrNotSendable         = errors.New("invoice_not_sendable")
)
