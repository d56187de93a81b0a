// Package domain contains per-org invoice settings: number sequences,
// default tax rate and email templates.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// InvoiceSettings is one row per tenant. The two counters are the only
// mutable sequence state in the system; they are read and advanced
// exclusively under a row lock inside the caller's transaction.
type InvoiceSettings struct {
	OrgID               snowflake.ID `gorm:"primaryKey" json:"organization_id"`
	InvoicePrefix       string       `gorm:"type:text;not null;default:'W'" json:"invoice_prefix"`
	NextInvoiceNumber   int64        `gorm:"not null;default:1" json:"next_invoice_number"`
	AgreementPrefix     string       `gorm:"type:text;not null;default:'LA'" json:"agreement_prefix"`
	NextAgreementNumber int64        `gorm:"not null;default:1" json:"next_agreement_number"`
	DefaultTaxRate      *float64     `gorm:"type:numeric(6,4)" json:"default_tax_rate,omitempty"`
	EmailSubject        string       `gorm:"type:text" json:"email_subject,omitempty"`
	EmailBody           string       `gorm:"type:text" json:"email_body,omitempty"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InvoiceSettings) TableName() string { return "invoice_settings" }

type UpdateSettingsRequest struct {
	InvoicePrefix   *string
	AgreementPrefix *string
	DefaultTaxRate  *float64
	EmailSubject    *string
	EmailBody       *string
}

type Service interface {
	// Get returns the org's settings, creating the default row on first
	// use.
	Get(ctx context.Context) (InvoiceSettings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (InvoiceSettings, error)

	// ReserveInvoiceNumbers allocates count sequential formatted invoice
	// numbers (e.g. W00001) inside tx. The read-increment-write runs as
	// one locked unit, so concurrent generations can never observe the
	// same counter value.
	ReserveInvoiceNumbers(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, count int) ([]string, error)

	// ReserveAgreementNumbers does the same for lease agreement numbers
	// (e.g. LA00001).
	ReserveAgreementNumbers(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, count int) ([]string, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCount        = errors.New("invalid_count")
	ErrInvalidPrefix       = errors.New("invalid_prefix")
)
