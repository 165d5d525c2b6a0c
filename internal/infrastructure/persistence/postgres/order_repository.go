package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
)

const orderColumns = `id, name, phone, county, location, item, quantity, price, amount, note, deleted_at, created_at, updated_at`

// OrderRepository implements repository.OrderRepository for PostgreSQL.
type OrderRepository struct {
	pool *Pool
}

// NewOrderRepository creates a repository on the shared pool.
func NewOrderRepository(pool *Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns live orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]*entity.Order, error) {
	var orders []*entity.Order
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE deleted_at IS NULL ORDER BY id DESC`)
		if err != nil {
			return fmt.Errorf("failed to query orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("failed to scan order row: %w", err)
			}
			orders = append(orders, o)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows iteration error: %w", err)
		}
		return nil
	})
	return orders, err
}

// FindByID returns a live order.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*entity.Order, error) {
	var order *entity.Order
	err := r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND deleted_at IS NULL`, id)
		o, err := scanOrder(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to scan order: %w", err)
		}
		order = o
		return nil
	})
	return order, err
}

// Create inserts the order and fills in ID and timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
			INSERT INTO orders (name, phone, county, location, item, quantity, price, amount, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`, o.Name, o.Phone, o.County, o.Location, o.Item, o.Quantity, o.Price, o.Amount, o.Note,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", translateError(err))
		}
		return nil
	})
}

// Update overwrites the details of a live order.
func (r *OrderRepository) Update(ctx context.Context, o *entity.Order) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `
			UPDATE orders
			SET name = $2, phone = $3, county = $4, location = $5, item = $6,
			    quantity = $7, price = $8, amount = $9, note = $10, updated_at = now()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING created_at, updated_at
		`, o.ID, o.Name, o.Phone, o.County, o.Location, o.Item, o.Quantity, o.Price, o.Amount, o.Note,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order %d: %w", o.ID, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to update order: %w", translateError(err))
		}
		return nil
	})
}

// SoftDelete stamps deleted_at on a live order.
func (r *OrderRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx,
			`UPDATE orders SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete order: %w", translateError(err))
		}
		return expectOneRow(result, fmt.Sprintf("order %d", id))
	})
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	o := &entity.Order{}
	var deletedAt sql.NullTime
	err := row.Scan(&o.ID, &o.Name, &o.Phone, &o.County, &o.Location, &o.Item,
		&o.Quantity, &o.Price, &o.Amount, &o.Note, &deletedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		o.DeletedAt = &t
	}
	return o, nil
}
