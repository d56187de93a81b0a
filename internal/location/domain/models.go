// Package domain contains depot/location models. Locations carry the
// combined tax rate that takes first priority during invoice tax
// resolution.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Location is a servicing depot. TotalTaxRate is a percentage
// (e.g. 11.0 for 11%); the tax resolver divides by 100.
type Location struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_location_org_name" json:"organization_id"`
	Name         string       `gorm:"not null;uniqueIndex:ux_location_org_name" json:"name"`
	Address      string       `gorm:"type:text" json:"address,omitempty"`
	City         string       `gorm:"type:text" json:"city,omitempty"`
	Province     string       `gorm:"type:text" json:"province,omitempty"`
	TotalTaxRate float64      `gorm:"type:numeric(6,3);not null;default:0" json:"total_tax_rate"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Location) TableName() string { return "locations" }

type CreateLocationRequest struct {
	Name         string
	Address      string
	City         string
	Province     string
	TotalTaxRate float64
}

type UpdateLocationRequest struct {
	Name         *string
	Address      *string
	City         *string
	Province     *string
	TotalTaxRate *float64
}

type Service interface {
	Create(context.Context, CreateLocationRequest) (Location, error)
	List(ctx context.Context) ([]Location, error)
	GetByID(ctx context.Context, id string) (Location, error)
	// GetByName returns nil when the org has no location by that name;
	// tax resolution treats that as "no location rate".
	GetByName(ctx context.Context, name string) (*Location, error)
	Update(ctx context.Context, id string, req UpdateLocationRequest) (Location, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
