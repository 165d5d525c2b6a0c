package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/order-service/internal/application/port"
	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
	"github.com/dreschagin/order-service/internal/infrastructure/cache/redis"
	"github.com/dreschagin/order-service/pkg/logger"
)

// ProductInput holds the caller-supplied product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
}

// ManageProductsUseCase управляет товарами с кешированием чтения
type ManageProductsUseCase struct {
	repository repository.ProductRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewManageProductsUseCase создает use case. cache может быть nil
func NewManageProductsUseCase(
	repository repository.ProductRepository,
	cache port.Cache,
	logger *logger.Logger,
) *ManageProductsUseCase {
	return &ManageProductsUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// List возвращает все товары, сначала из кеша
func (uc *ManageProductsUseCase) List(ctx context.Context) ([]*entity.Product, error) {
	key := redis.ProductListKey()

	if uc.cache != nil {
		var cached []*entity.Product
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			uc.logger.Debug("Cache hit for product list", "count", len(cached))
			return cached, nil
		} else if !errors.Is(err, port.ErrCacheMiss) {
			uc.logger.Warn("Product cache read failed", "error", err.Error())
		}
	}

	products, err := uc.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	uc.store(ctx, key, products)
	return products, nil
}

// Get возвращает товар по идентификатору, сначала из кеша
func (uc *ManageProductsUseCase) Get(ctx context.Context, id int64) (*entity.Product, error) {
	key := redis.ProductKey(id)

	if uc.cache != nil {
		var cached entity.Product
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			uc.logger.Debug("Cache hit for product", "product_id", id)
			return &cached, nil
		}
	}

	product, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	uc.store(ctx, key, product)
	return product, nil
}

// Create проверяет и сохраняет новый товар
func (uc *ManageProductsUseCase) Create(ctx context.Context, in ProductInput) (*entity.Product, error) {
	product, err := entity.NewProduct(in.Name, in.Description, in.Price, in.Stock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := uc.repository.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	uc.invalidate(ctx, product.ID)
	return product, nil
}

// Update заменяет поля существующего товара
func (uc *ManageProductsUseCase) Update(ctx context.Context, id int64, in ProductInput) (*entity.Product, error) {
	product, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	updated, err := entity.NewProduct(in.Name, in.Description, in.Price, in.Stock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	updated.ID = product.ID
	updated.CreatedAt = product.CreatedAt

	if err := uc.repository.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	uc.invalidate(ctx, id)
	return updated, nil
}

// Delete удаляет товар
func (uc *ManageProductsUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	uc.invalidate(ctx, id)
	return nil
}

func (uc *ManageProductsUseCase) store(ctx context.Context, key string, value interface{}) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, key, value); err != nil {
		uc.logger.Warn("Failed to cache products", "key", key, "error", err.Error())
	}
}

func (uc *ManageProductsUseCase) invalidate(ctx context.Context, id int64) {
	if uc.cache == nil {
		return
	}
	for _, key := range []string{redis.ProductKey(id), redis.ProductListKey()} {
		if err := uc.cache.Delete(ctx, key); err != nil {
			uc.logger.Warn("Failed to invalidate product cache", "key", key, "error", err.Error())
		}
	}
}
