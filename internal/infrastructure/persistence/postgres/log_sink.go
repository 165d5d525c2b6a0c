package postgres

import (
	"context"

	"github.com/dreschagin/order-service/pkg/logger"
)

// LogSink persists records to the logs table. Each write is one scoped
// acquisition and one INSERT; failures are returned, never retried.
type LogSink struct {
	store *LogStore
}

// NewLogSink creates the database sink on top of the shared store.
func NewLogSink(store *LogStore) *LogSink {
	return &LogSink{store: store}
}

func (s *LogSink) Name() string {
	return "database"
}

func (s *LogSink) Write(ctx context.Context, rec logger.Record) error {
	err := s.store.Insert(ctx, LogRow{
		Level:     rec.Level.String(),
		Message:   rec.Message,
		CreatedAt: rec.Time,
	})
	if err != nil {
		return logger.NewPersistenceFailure(s.Name(), err)
	}
	return nil
}
