package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dreschagin/order-service/internal/infrastructure/metrics"
	"github.com/dreschagin/order-service/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/order-service/pkg/config"
	"github.com/dreschagin/order-service/pkg/logger"
)

// app holds the process-wide resources every command shares: the single
// database pool, the logger fanning out to the configured sinks and the
// metrics registry.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	pool     *postgres.Pool
	log      *logger.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	pool, err := postgres.Open(ctx, cfg.Database.DSN(), postgres.PoolConfig{
		Size:            cfg.Database.PoolSize,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		AcquireTimeout:  cfg.Database.AcquireTimeout,
	})
	if err != nil {
		return nil, err
	}
	pool.SetObserver(m)

	opts := []logger.Option{
		logger.WithObserver(m),
		logger.WithSinkTimeout(cfg.Log.SinkTimeout),
		logger.WithQueueSize(cfg.Log.QueueSize),
	}
	if cfg.Log.ConsoleEnabled {
		opts = append(opts, logger.WithSink(logger.NewConsoleSink(os.Stdout)))
	}
	if cfg.Log.FileEnabled {
		fileSink := logger.NewFileSink(cfg.Log.Dir, cfg.Log.File)
		if err := fileSink.EnsureDir(); err != nil {
			shutdownPool(pool, cfg)
			return nil, &config.ConfigError{Key: "LOG_DIR", Err: err}
		}
		opts = append(opts, logger.WithSink(fileSink))
	}
	if cfg.Log.DBEnabled {
		opts = append(opts, logger.WithSink(postgres.NewLogSink(postgres.NewLogStore(pool))))
	}

	return &app{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		pool:     pool,
		log:      logger.New(cfg.Log.Level, opts...),
	}, nil
}

// close flushes the logger, then drains the pool. The order matters: the
// database sink writes through the pool until the logger is closed.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.log.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), a.cfg.Database.DrainTimeout)
	defer drainCancel()
	if err := a.pool.Shutdown(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down pool: %w", err))
	}
	return errors.Join(errs...)
}

func shutdownPool(pool *postgres.Pool, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.DrainTimeout)
	defer cancel()
	_ = pool.Shutdown(ctx)
}
