// Package domain contains the organization (tenant) model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization is one tenant of the service: a gas distributor whose
// customers, cylinders and invoices are isolated from every other
// tenant.
type Organization struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	Slug       string       `gorm:"not null;uniqueIndex" json:"slug"`
	Email      string       `gorm:"type:text" json:"email,omitempty"`
	Phone      string       `gorm:"type:text" json:"phone,omitempty"`
	Address    string       `gorm:"type:text" json:"address,omitempty"`
	City       string       `gorm:"type:text" json:"city,omitempty"`
	Province   string       `gorm:"type:text" json:"province,omitempty"`
	PostalCode string       `gorm:"type:text" json:"postal_code,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

type CreateOrganizationRequest struct {
	Name       string
	Slug       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

type UpdateOrganizationRequest struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	City       *string
	Province   *string
	PostalCode *string
}

type Service interface {
	Create(context.Context, CreateOrganizationRequest) (Organization, error)
	GetByID(ctx context.Context, id string) (Organization, error)
	GetCurrent(ctx context.Context) (Organization, error)
	Update(ctx context.Context, id string, req UpdateOrganizationRequest) (Organization, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidSlug = errors.New("invalid_slug")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
