//go:build integration
// +build integration

package http

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/order-service/internal/application/usecase"
	"github.com/dreschagin/order-service/internal/infrastructure/metrics"
	"github.com/dreschagin/order-service/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/order-service/internal/interfaces/http/handler"
	"github.com/dreschagin/order-service/pkg/config"
	"github.com/dreschagin/order-service/pkg/logger"
)

func TestE2EIntegrationOrdersAndLogRetention(t *testing.T) {
	ctx := context.Background()
	dsn := getenv("INTEGRATION_POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=orders sslmode=disable")

	pool, err := postgres.Open(ctx, dsn, postgres.PoolConfig{Size: 5, AcquireTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(shutdownCtx)
	})

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = pool.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "TRUNCATE orders, products, logs RESTART IDENTITY")
		return err
	})
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}

	store := postgres.NewLogStore(pool)
	log := logger.New(logger.DEBUG, logger.WithSink(postgres.NewLogSink(store)), logger.WithFallback(io.Discard))
	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = log.Close(closeCtx)
	})

	registry := prometheus.NewRegistry()
	router := NewRouter(
		handler.NewOrderHandler(usecase.NewManageOrdersUseCase(postgres.NewOrderRepository(pool), nil, log), log),
		handler.NewProductHandler(usecase.NewManageProductsUseCase(postgres.NewProductRepository(pool), nil, log), log),
		handler.NewHealthHandler(pool, log),
		metrics.New(registry),
		registry,
		config.SecurityConfig{AuthEnabled: true, AuthToken: testToken},
		config.RateLimitConfig{},
		log,
	)
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	client := server.Client()

	resp := doRequest(t, client, http.MethodGet, server.URL+"/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}

	decodeResponse(t, doRequest(t, client, http.MethodPost, server.URL+"/api/v1/orders", jsonBody(t, map[string]interface{}{
		"name":     "Integration",
		"item":     "Cooking oil",
		"quantity": 2,
		"price":    410,
	}), authHeaders()), http.StatusCreated)

	decodeResponse(t, doRequest(t, client, http.MethodGet, server.URL+"/api/v1/orders/999", nil, authHeaders()), http.StatusNotFound)

	counts, err := store.CountByLevel(ctx)
	if err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if counts["info"] == 0 || counts["warn"] == 0 {
		t.Fatalf("expected info and warn rows in logs table, got %v", counts)
	}
	warnBefore := counts["warn"]

	prune, err := usecase.NewPruneLogsUseCase(store, logger.INFO, nil)
	if err != nil {
		t.Fatalf("prune use case: %v", err)
	}
	if _, err := prune.Execute(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	counts, err = store.CountByLevel(ctx)
	if err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if counts["debug"] != 0 || counts["info"] != 0 {
		t.Fatalf("expected debug and info pruned, got %v", counts)
	}
	if counts["warn"] != warnBefore {
		t.Fatalf("expected warn rows kept, got %d want %d", counts["warn"], warnBefore)
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
