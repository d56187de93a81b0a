// Package domain contains rental line-item models: one row per
// cylinder held by a customer.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RentalStatus string

const (
	RentalStatusActive RentalStatus = "active"
	RentalStatusEnded  RentalStatus = "ended"
)

// Rental is one billable cylinder assignment. RentalType is optional
// free text ("monthly"/"yearly"); untagged rows are classified at
// invoice time from the customer's lease agreement or the billing
// period. Product code, gas type and size are display-only.
type Rental struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	CustomerID     snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	UnitID         string        `gorm:"not null" json:"unit_id"`
	ProductCode    string        `gorm:"type:text" json:"product_code,omitempty"`
	GasType        string        `gorm:"type:text" json:"gas_type,omitempty"`
	Size           string        `gorm:"type:text" json:"size,omitempty"`
	Location       string        `gorm:"type:text" json:"location,omitempty"`
	RentalType     string        `gorm:"type:text" json:"rental_type,omitempty"`
	LeaseID        *snowflake.ID `gorm:"index" json:"lease_id,omitempty"`
	RentalStart    *time.Time    `gorm:"" json:"rental_start,omitempty"`
	DaysAtLocation int           `gorm:"not null;default:0" json:"days_at_location"`
	TaxRate        *float64      `gorm:"type:numeric(6,4)" json:"tax_rate,omitempty"`
	Status         RentalStatus  `gorm:"type:text;not null;default:'active';index" json:"status"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Rental) TableName() string { return "rentals" }

type CreateRentalRequest struct {
	CustomerID  string
	UnitID      string
	ProductCode string
	GasType     string
	Size        string
	Location    string
	RentalType  string
	LeaseID     *string
	RentalStart *time.Time
	TaxRate     *float64
}

type UpdateRentalRequest struct {
	RentalType *string
	LeaseID    *string
	TaxRate    *float64
	Status     *RentalStatus
}

type ListRentalRequest struct {
	CustomerID string
	Status     RentalStatus
}

type Service interface {
	Create(context.Context, CreateRentalRequest) (Rental, error)
	List(context.Context, ListRentalRequest) ([]Rental, error)
	GetByID(ctx context.Context, id string) (Rental, error)
	// ActiveForCustomer returns the customer's active rentals, the set
	// an invoice bills.
	ActiveForCustomer(ctx context.Context, customerID snowflake.ID) ([]Rental, error)
	Update(ctx context.Context, id string, req UpdateRentalRequest) (Rental, error)
	End(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidRentalType   = errors.New("invalid_rental_type")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
