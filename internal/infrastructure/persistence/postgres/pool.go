package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrResourceExhausted is returned when no connection frees up within the
	// acquire timeout.
	ErrResourceExhausted = errors.New("connection resource exhausted")
	// ErrPoolClosed is returned by Acquire after Shutdown has started.
	ErrPoolClosed = errors.New("connection resource is shut down")
)

// PoolConfig sizes the pool and bounds how long callers wait on it.
type PoolConfig struct {
	Size            int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AcquireTimeout  time.Duration
}

// PoolObserver receives pool events, typically to feed metrics.
type PoolObserver interface {
	AcquireTimedOut()
	InUseChanged(n int64)
}

// Pool is the process-wide handle on the database. It is built once in main
// and injected into every consumer (log sink, retention, repositories); no
// other component opens its own *sql.DB.
//
// Capacity is enforced with a semaphore sized to MaxOpenConns so a caller
// waiting for a connection fails with ErrResourceExhausted after
// AcquireTimeout instead of queueing inside database/sql forever.
type Pool struct {
	db             *sql.DB
	sem            *semaphore.Weighted
	size           int64
	acquireTimeout time.Duration
	observer       PoolObserver

	inUse atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Conn is a connection checked out of the pool. Release it exactly once;
// extra calls are no-ops.
type Conn struct {
	*sql.Conn
	pool *Pool
	once sync.Once
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*Pool, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool := NewPool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPool wraps an existing *sql.DB. The pool takes ownership of db.
func NewPool(db *sql.DB, cfg PoolConfig) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	if cfg.MaxIdleConns <= 0 || cfg.MaxIdleConns > cfg.Size {
		cfg.MaxIdleConns = cfg.Size
	}

	db.SetMaxOpenConns(cfg.Size)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &Pool{
		db:             db,
		sem:            semaphore.NewWeighted(int64(cfg.Size)),
		size:           int64(cfg.Size),
		acquireTimeout: cfg.AcquireTimeout,
	}
}

// SetObserver installs a metrics observer. Call before the pool is shared.
func (p *Pool) SetObserver(o PoolObserver) {
	p.observer = o
}

// Acquire checks out a connection, waiting at most the acquire timeout or
// the caller's deadline, whichever comes first. Running out of time is
// reported as ErrResourceExhausted; only cancellation of ctx surfaces as the
// context error.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("failed to acquire connection: %w", ctx.Err())
		}
		if p.observer != nil {
			p.observer.AcquireTimedOut()
		}
		return nil, fmt.Errorf("%w: no connection within %s", ErrResourceExhausted, p.acquireTimeout)
	}

	if p.isClosed() {
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}

	conn, err := p.db.Conn(waitCtx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	p.track(1)
	return &Conn{Conn: conn, pool: p}, nil
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Release returns c to the pool.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	c.once.Do(func() {
		_ = c.Conn.Close()
		p.track(-1)
		p.sem.Release(1)
	})
}

// Release returns the connection to its pool.
func (c *Conn) Release() {
	c.pool.Release(c)
}

// WithConn runs fn with a checked-out connection and releases it on every
// exit path, panics included.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(ctx, conn.Conn)
}

// Available returns how many connections can be acquired right now.
func (p *Pool) Available() int {
	return int(p.size - p.inUse.Load())
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return int(p.size)
}

// Ping checks the database through a pooled connection.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Shutdown refuses new acquisitions, waits for every outstanding connection
// to be released (bounded by ctx) and closes the database handle. The handle
// is closed even when the drain times out.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var drainErr error
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		drainErr = fmt.Errorf("failed to drain connection pool, %d still in use: %w", p.inUse.Load(), err)
	}

	if err := p.db.Close(); err != nil {
		return errors.Join(drainErr, fmt.Errorf("failed to close database: %w", err))
	}
	return drainErr
}

func (p *Pool) track(delta int64) {
	n := p.inUse.Add(delta)
	if p.observer != nil {
		p.observer.InUseChanged(n)
	}
}
