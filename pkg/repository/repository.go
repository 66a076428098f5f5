package repository

import (
	"context"

	"github.com/ratecell/ratecell/pkg/db/option"
)

// Repository is a thin generic data access layer over gorm.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
