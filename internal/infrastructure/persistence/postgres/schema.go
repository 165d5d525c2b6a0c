package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS logs (
		id         BIGSERIAL PRIMARY KEY,
		level      TEXT NOT NULL CHECK (level IN ('debug', 'info', 'warn', 'error')),
		message    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_level ON logs (level)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(12, 2) NOT NULL DEFAULT 0,
		stock       INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		phone      TEXT NOT NULL DEFAULT '',
		county     TEXT NOT NULL DEFAULT '',
		location   TEXT NOT NULL DEFAULT '',
		item       TEXT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 1,
		price      NUMERIC(12, 2) NOT NULL DEFAULT 0,
		amount     NUMERIC(12, 2) NOT NULL DEFAULT 0,
		note       TEXT NOT NULL DEFAULT '',
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_live ON orders (id) WHERE deleted_at IS NULL`,
}

// Migrate creates the tables the service needs. Statements are idempotent
// and run in one transaction on a pooled connection.
func Migrate(ctx context.Context, pool *Pool) error {
	return pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}
