// Package domain defines the tax rate resolver contract.
package domain

import (
	"context"

	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
)

// Resolution carries the resolved fractional rate and where it came
// from, so invoices can surface the provenance.
type Resolution struct {
	Rate   float64 `json:"rate"`
	Source Source  `json:"source"`
}

type Source string

const (
	SourceLocation Source = "location"
	SourceRental   Source = "rental"
	SourceSettings Source = "settings"
	SourceFallback Source = "fallback"
)

type Resolver interface {
	// Resolve picks the tax rate for a rental: the rental's location
	// rate first, then the rate stored on the rental itself, then the
	// org default, then the configured fallback. Always returns a
	// usable rate.
	Resolve(ctx context.Context, rental *rentaldomain.Rental) Resolution
}
