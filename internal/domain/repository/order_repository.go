package repository

import (
	"context"

	"github.com/dreschagin/order-service/internal/domain/entity"
)

// OrderRepository stores orders (Port). Soft-deleted orders are invisible to
// every method.
type OrderRepository interface {
	List(ctx context.Context) ([]*entity.Order, error)

	// FindByID returns ErrNotFound for missing or deleted orders.
	FindByID(ctx context.Context, id int64) (*entity.Order, error)

	// Create assigns ID and timestamps.
	Create(ctx context.Context, order *entity.Order) error

	Update(ctx context.Context, order *entity.Order) error

	// SoftDelete marks the order deleted.
	SoftDelete(ctx context.Context, id int64) error
}
