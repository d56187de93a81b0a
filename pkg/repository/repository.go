// Package repository provides a generic gorm-backed store shared by
// every feature service.
package repository

import (
	"context"

	"github.com/gastrack/cylinderbill/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the generic persistence contract. Filters are expressed
// as a partial model value; richer predicates come in through query
// options.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
