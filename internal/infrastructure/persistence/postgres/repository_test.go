package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
)

var orderRowColumns = []string{
	"id", "name", "phone", "county", "location", "item", "quantity",
	"price", "amount", "note", "deleted_at", "created_at", "updated_at",
}

func TestOrderRepositoryCreate(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	repo := NewOrderRepository(pool)

	order, err := entity.NewOrder(entity.OrderDetails{
		Name: "Amina", Phone: "0700000000", County: "Nairobi", Location: "CBD",
		Item: "Maize flour", Quantity: 2, Price: 150,
	})
	if err != nil {
		t.Fatalf("NewOrder() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs("Amina", "0700000000", "Nairobi", "CBD", "Maize flour", 2, 150.0, 300.0, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))

	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if order.ID != 42 || !order.CreatedAt.Equal(now) {
		t.Fatalf("expected ID and timestamps to be filled, got %+v", order)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderRepositoryFindByIDNotFound(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	repo := NewOrderRepository(pool)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1 AND deleted_at IS NULL`)).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 7)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepositoryList(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	repo := NewOrderRepository(pool)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE deleted_at IS NULL ORDER BY id DESC`)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(2, "B", "", "", "", "Rice", 1, 90.0, 90.0, "", nil, now, now).
			AddRow(1, "A", "", "", "", "Beans", 3, 10.0, 30.0, "fragile", nil, now, now))

	orders, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 2 || orders[1].Note != "fragile" {
		t.Fatalf("unexpected orders %+v", orders)
	}
	if orders[0].IsDeleted() {
		t.Fatal("listed order must not be marked deleted")
	}
}

func TestOrderRepositorySoftDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "live order", affected: 1},
		{name: "missing or already deleted", affected: 0, wantErr: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, mock := newMockPool(t, PoolConfig{Size: 1})
			repo := NewOrderRepository(pool)

			mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET deleted_at = now()`)).
				WithArgs(int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.SoftDelete(context.Background(), 5)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SoftDelete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProductRepositoryCreateConstraintViolation(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	repo := NewProductRepository(pool)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})

	err := repo.Create(context.Background(), &entity.Product{Name: "Sugar", Price: 1})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestProductRepositoryUpdateNotFound(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	repo := NewProductRepository(pool)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	err := repo.Update(context.Background(), &entity.Product{ID: 9, Name: "Salt"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := pool.Available(); got != pool.Size() {
		t.Fatalf("connection leaked: %d of %d available", got, pool.Size())
	}
}

func TestMigrateRunsSchemaInOneTransaction(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})

	mock.ExpectBegin()
	for range schemaStatements {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
