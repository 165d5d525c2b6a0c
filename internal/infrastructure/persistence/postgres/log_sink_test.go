package postgres

import (
	"bufio"
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dreschagin/order-service/pkg/logger"
)

var insertLogSQL = regexp.QuoteMeta(`INSERT INTO logs (level, message, created_at) VALUES ($1, $2, $3)`)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogSinkWritesOneRow(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	sink := NewLogSink(NewLogStore(pool))

	rec, err := logger.NewRecord(logger.WARN, "Order not found", nil)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}

	mock.ExpectExec(insertLogSQL).
		WithArgs("warn", "Order not found", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if got := pool.Available(); got != pool.Size() {
		t.Fatalf("sink leaked a connection: %d of %d available", got, pool.Size())
	}
}

func TestLogSinkReportsPersistenceFailure(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	sink := NewLogSink(NewLogStore(pool))

	cause := errors.New(`relation "logs" does not exist`)
	mock.ExpectExec(insertLogSQL).WillReturnError(cause)

	rec, _ := logger.NewRecord(logger.ERROR, "disk full", nil)
	err := sink.Write(context.Background(), rec)

	if !errors.Is(err, logger.ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying cause to be preserved, got %v", err)
	}
	if got := pool.Available(); got != pool.Size() {
		t.Fatalf("failed write leaked a connection: %d of %d available", got, pool.Size())
	}
}

func TestLogSinkReportsExhaustedPool(t *testing.T) {
	pool, _ := newMockPool(t, PoolConfig{Size: 1, AcquireTimeout: 20 * time.Millisecond})
	sink := NewLogSink(NewLogStore(pool))

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	rec, _ := logger.NewRecord(logger.INFO, "Order created", nil)
	err = sink.Write(context.Background(), rec)

	if !errors.Is(err, logger.ErrPersistenceFailure) || !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected persistence failure caused by exhaustion, got %v", err)
	}
}

func TestLogSinkReportsExhaustionUnderShortSinkDeadline(t *testing.T) {
	pool, _ := newMockPool(t, PoolConfig{Size: 1, AcquireTimeout: 500 * time.Millisecond})
	sink := NewLogSink(NewLogStore(pool))

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	rec, _ := logger.NewRecord(logger.ERROR, "disk full", nil)
	err = sink.Write(ctx, rec)

	if !errors.Is(err, logger.ErrPersistenceFailure) || !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected persistence failure caused by exhaustion, got %v", err)
	}
}

// levelSet matches the text form of a pq string array.
type levelSet struct {
	want    []string
	exclude []string
}

func (m levelSet) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, w := range m.want {
		if !strings.Contains(s, w) {
			return false
		}
	}
	for _, x := range m.exclude {
		if strings.Contains(s, x) {
			return false
		}
	}
	return true
}

func TestLogStoreDeleteLevels(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	store := NewLogStore(pool)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM logs WHERE level = ANY($1)`)).
		WithArgs(levelSet{want: []string{"debug", "info"}, exclude: []string{"warn", "error"}}).
		WillReturnResult(sqlmock.NewResult(0, 5))

	deleted, err := store.DeleteLevels(context.Background(), logger.AtOrBelow(logger.INFO))
	if err != nil {
		t.Fatalf("DeleteLevels() error = %v", err)
	}
	if deleted != 5 {
		t.Fatalf("expected 5 deleted rows, got %d", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLogStoreDeleteLevelsEmpty(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	store := NewLogStore(pool)

	deleted, err := store.DeleteLevels(context.Background(), nil)
	if err != nil || deleted != 0 {
		t.Fatalf("DeleteLevels(nil) = %d, %v", deleted, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement expected: %v", err)
	}
}

func TestLogStoreCountByLevel(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	store := NewLogStore(pool)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT level, COUNT(*) FROM logs GROUP BY level`)).
		WillReturnRows(sqlmock.NewRows([]string{"level", "count"}).
			AddRow("warn", 3).
			AddRow("error", 1))

	counts, err := store.CountByLevel(context.Background())
	if err != nil {
		t.Fatalf("CountByLevel() error = %v", err)
	}
	if counts["warn"] != 3 || counts["error"] != 1 || counts["info"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestErrorRecordReachesAllThreeSinks(t *testing.T) {
	pool, mock := newMockPool(t, PoolConfig{Size: 1})
	mock.ExpectExec(insertLogSQL).
		WithArgs("error", "disk full", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	console := &lockedBuffer{}
	dir := filepath.Join(t.TempDir(), "logs")
	file := logger.NewFileSink(dir, "app.log")

	log := logger.New(logger.DEBUG,
		logger.WithSink(logger.NewConsoleSink(console)),
		logger.WithSink(file),
		logger.WithSink(NewLogSink(NewLogStore(pool))),
		logger.WithFallback(&lockedBuffer{}),
	)

	log.Error("disk full", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := log.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "[ERROR] disk full") {
		t.Fatalf("console line missing, got %q", console.String())
	}

	f, err := os.Open(file.Path())
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		last = scanner.Text()
	}
	if !strings.Contains(last, `"message":"disk full"`) || !strings.Contains(last, `"level":"error"`) {
		t.Fatalf("unexpected last file line %q", last)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database row not written: %v", err)
	}
}
