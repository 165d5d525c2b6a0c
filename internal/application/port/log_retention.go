package port

import (
	"context"

	"github.com/dreschagin/order-service/pkg/logger"
)

// LogRetentionStore deletes persisted log rows by level.
type LogRetentionStore interface {
	// DeleteLevels removes every row whose level is in levels with one
	// statement and returns the number of rows removed.
	DeleteLevels(ctx context.Context, levels []logger.Level) (int64, error)
}

// RetentionObserver receives the outcome of every retention pass.
type RetentionObserver interface {
	RetentionCompleted(deleted int64)
	RetentionFailed()
}
