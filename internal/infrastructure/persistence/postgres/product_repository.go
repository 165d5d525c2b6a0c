package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ProductRepository implements repository.ProductRepository for PostgreSQL.
type ProductRepository struct {
	pool *Pool
}

// NewProductRepository creates a repository on the shared pool.
func NewProductRepository(pool *Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]*entity.Product, error) {
	var products []*entity.Product
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products ORDER BY id DESC`)
		if err != nil {
			return fmt.Errorf("failed to query products: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return fmt.Errorf("failed to scan product row: %w", err)
			}
			products = append(products, p)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows iteration error: %w", err)
		}
		return nil
	})
	return products, err
}

// FindByID returns a single product.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*entity.Product, error) {
	var product *entity.Product
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
		p, err := scanProduct(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to scan product: %w", err)
		}
		product = p
		return nil
	})
	return product, err
}

// Create inserts the product and fills in ID and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
			INSERT INTO products (name, description, price, stock)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`, p.Name, p.Description, p.Price, p.Stock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", translateError(err))
		}
		return nil
	})
}

// Update overwrites the mutable columns.
func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
			UPDATE products
			SET name = $2, description = $3, price = $4, stock = $5, updated_at = now()
			WHERE id = $1
			RETURNING created_at, updated_at
		`, p.ID, p.Name, p.Description, p.Price, p.Stock).Scan(&p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %d: %w", p.ID, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to update product: %w", translateError(err))
		}
		return nil
	})
}

// Delete removes the product row.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", translateError(err))
		}
		return expectOneRow(result, fmt.Sprintf("product %d", id))
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}
