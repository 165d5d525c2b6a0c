package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dreschagin/order-service/pkg/logger"
)

// LogRow is the database-resident form of a log record. Rows are append-only
// and leave the table only through retention or an operator.
type LogRow struct {
	ID        int64
	Level     string
	Message   string
	CreatedAt time.Time
}

// LogStore reads and writes the logs table through the shared pool.
type LogStore struct {
	pool *Pool
}

// NewLogStore creates a store backed by the shared pool.
func NewLogStore(pool *Pool) *LogStore {
	return &LogStore{pool: pool}
}

// Insert persists one row. A zero CreatedAt lets the database default apply.
func (s *LogStore) Insert(ctx context.Context, row LogRow) error {
	return s.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var err error
		if row.CreatedAt.IsZero() {
			_, err = conn.ExecContext(ctx,
				`INSERT INTO logs (level, message) VALUES ($1, $2)`,
				row.Level, row.Message)
		} else {
			_, err = conn.ExecContext(ctx,
				`INSERT INTO logs (level, message, created_at) VALUES ($1, $2, $3)`,
				row.Level, row.Message, row.CreatedAt)
		}
		if err != nil {
			return fmt.Errorf("failed to insert log row: %w", err)
		}
		return nil
	})
}

// DeleteLevels removes every row whose level is in levels with a single
// statement and returns the number of rows deleted.
func (s *LogStore) DeleteLevels(ctx context.Context, levels []logger.Level) (int64, error) {
	if len(levels) == 0 {
		return 0, nil
	}

	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = level.String()
	}

	var deleted int64
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx,
			`DELETE FROM logs WHERE level = ANY($1)`, pq.Array(names))
		if err != nil {
			return fmt.Errorf("failed to delete log rows: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read deleted row count: %w", err)
		}
		return nil
	})

	return deleted, err
}

// CountByLevel returns the number of stored rows per level.
func (s *LogStore) CountByLevel(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	err := s.pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT level, COUNT(*) FROM logs GROUP BY level`)
		if err != nil {
			return fmt.Errorf("failed to count log rows: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var level string
			var n int64
			if err := rows.Scan(&level, &n); err != nil {
				return fmt.Errorf("failed to scan log count: %w", err)
			}
			counts[level] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
