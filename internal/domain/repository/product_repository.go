package repository

import (
	"context"

	"github.com/dreschagin/order-service/internal/domain/entity"
)

// ProductRepository stores products (Port). Implemented in infrastructure.
type ProductRepository interface {
	List(ctx context.Context) ([]*entity.Product, error)

	// FindByID returns ErrNotFound when the product does not exist.
	FindByID(ctx context.Context, id int64) (*entity.Product, error)

	// Create assigns ID and timestamps.
	Create(ctx context.Context, product *entity.Product) error

	Update(ctx context.Context, product *entity.Product) error

	Delete(ctx context.Context, id int64) error
}
