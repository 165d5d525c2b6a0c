package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	// Application
	"github.com/dreschagin/order-service/internal/application/port"
	"github.com/dreschagin/order-service/internal/application/usecase"

	// Infrastructure
	rediscache "github.com/dreschagin/order-service/internal/infrastructure/cache/redis"
	natsmsg "github.com/dreschagin/order-service/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/order-service/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/order-service/internal/infrastructure/scheduler"

	// Interfaces
	httpInterface "github.com/dreschagin/order-service/internal/interfaces/http"
	"github.com/dreschagin/order-service/internal/interfaces/http/handler"

	// Shared
	"github.com/dreschagin/order-service/pkg/config"
	"github.com/dreschagin/order-service/pkg/logger"
)

const retentionJobName = "log-retention"

type serveOptions struct {
	migrate bool
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the log retention scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply the database schema before serving")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	// 1. Общие ресурсы: пул соединений, logger, метрики
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	log := a.log
	log.Info("Starting order service", "port", cfg.Server.Port, "log_level", cfg.Log.Level.String())

	if opts.migrate {
		if err := postgres.Migrate(ctx, a.pool); err != nil {
			log.Error("Failed to apply database schema", err)
			return errors.Join(err, a.close())
		}
		log.Info("Database schema applied")
	}

	// 2. Опциональные зависимости: кеш товаров и события заказов
	var cache port.Cache
	var redisCache *rediscache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = rediscache.NewRedisCache(ctx, rediscache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("Redis unavailable, product cache disabled", "error", err.Error())
			redisCache = nil
		} else {
			cache = redisCache
			log.Info("Product cache enabled", "ttl", cfg.Redis.TTL.String())
		}
	}

	var publisher port.EventPublisher
	var natsPublisher *natsmsg.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = natsmsg.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Warn("NATS unavailable, order events disabled", "error", err.Error())
			natsPublisher = nil
		} else {
			publisher = natsPublisher
		}
	}

	// 3. Use cases и HTTP слой
	ordersUC := usecase.NewManageOrdersUseCase(postgres.NewOrderRepository(a.pool), publisher, log)
	productsUC := usecase.NewManageProductsUseCase(postgres.NewProductRepository(a.pool), cache, log)

	router := httpInterface.NewRouter(
		handler.NewOrderHandler(ordersUC, log),
		handler.NewProductHandler(productsUC, log),
		handler.NewHealthHandler(a.pool, log),
		a.metrics,
		a.registry,
		cfg.Security,
		cfg.RateLimit,
		log,
	)

	// 4. Планировщик очистки журнала
	var retention *scheduler.Scheduler
	if cfg.Retention.Enabled {
		retention, err = newRetentionScheduler(a, log)
		if err != nil {
			log.Error("Failed to configure log retention", err)
			return errors.Join(err, a.close())
		}
		if err := retention.Start(ctx); err != nil {
			return errors.Join(err, a.close())
		}
		log.Info("Log retention scheduled",
			"schedule", retention.Spec(),
			"threshold", cfg.Retention.Threshold.String())
	} else {
		log.Warn("Log retention is disabled, the logs table will grow without bound")
	}

	// 5. HTTP сервер
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 6. Ожидаем сигнал для graceful shutdown
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, starting graceful shutdown...")
	case err, ok := <-serverErr:
		if ok {
			log.Error("HTTP server failed", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	if retention != nil {
		if err := retention.Stop(shutdownCtx); err != nil {
			log.Error("Log retention did not stop cleanly", err)
		}
	}

	if natsPublisher != nil {
		if err := natsPublisher.Close(); err != nil {
			log.Warn("Failed to drain NATS connection", "error", err.Error())
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			log.Warn("Failed to close Redis client", "error", err.Error())
		}
	}

	log.Info("Server stopped gracefully")
	return errors.Join(runErr, a.close())
}

// newRetentionScheduler wires the prune use case to a cron scheduler. Run
// failures go to the fallback channel through the logger's reporter, never
// through the sinks.
func newRetentionScheduler(a *app, log *logger.Logger) (*scheduler.Scheduler, error) {
	prune, err := usecase.NewPruneLogsUseCase(postgres.NewLogStore(a.pool), a.cfg.Retention.Threshold, a.metrics)
	if err != nil {
		return nil, err
	}

	job := func(ctx context.Context) error {
		deleted, err := prune.Execute(ctx)
		if err != nil {
			return err
		}
		log.Info("Log retention pass completed",
			"deleted", deleted,
			"threshold", prune.Threshold().String())
		return nil
	}

	return scheduler.New(retentionJobName, a.cfg.Retention.Schedule, job,
		scheduler.WithReporter(log),
		scheduler.WithObserver(a.metrics),
		scheduler.WithRunTimeout(a.cfg.Retention.RunTimeout),
	)
}
