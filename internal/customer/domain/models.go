// Package domain contains customer models and the service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/pkg/db/pagination"
	"gorm.io/datatypes"
)

// Customer is one gas-cylinder renter belonging to a tenant. Location
// names the customer's servicing depot and drives tax-rate resolution;
// TaxRate is an optional customer-level override.
type Customer struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Name       string            `gorm:"not null;index" json:"name"`
	Email      string            `gorm:"type:text" json:"email,omitempty"`
	Phone      string            `gorm:"type:text" json:"phone,omitempty"`
	Address    string            `gorm:"type:text" json:"address,omitempty"`
	City       string            `gorm:"type:text" json:"city,omitempty"`
	Province   string            `gorm:"type:text" json:"province,omitempty"`
	PostalCode string            `gorm:"type:text" json:"postal_code,omitempty"`
	Location   string            `gorm:"type:text;index" json:"location,omitempty"`
	TaxRate    *float64          `gorm:"type:numeric(6,4)" json:"tax_rate,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

type CreateCustomerRequest struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
	Location   string
	TaxRate    *float64
}

type UpdateCustomerRequest struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Location *string
	TaxRate  *float64
}

type ListCustomerRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Email     string
	Location  string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	Update(ctx context.Context, id string, req UpdateCustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
