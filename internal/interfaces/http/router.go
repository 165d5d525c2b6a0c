package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/order-service/internal/infrastructure/metrics"
	"github.com/dreschagin/order-service/internal/interfaces/http/handler"
	"github.com/dreschagin/order-service/internal/interfaces/http/middleware"
	"github.com/dreschagin/order-service/pkg/config"
	"github.com/dreschagin/order-service/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux            *http.ServeMux
	orderHandler   *handler.OrderHandler
	productHandler *handler.ProductHandler
	healthHandler  *handler.HealthHandler
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	security       config.SecurityConfig
	rateLimit      config.RateLimitConfig
	logger         *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	orderHandler *handler.OrderHandler,
	productHandler *handler.ProductHandler,
	healthHandler *handler.HealthHandler,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	security config.SecurityConfig,
	rateLimit config.RateLimitConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		orderHandler:   orderHandler,
		productHandler: productHandler,
		healthHandler:  healthHandler,
		metrics:        m,
		gatherer:       gatherer,
		security:       security,
		rateLimit:      rateLimit,
		logger:         logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Probes and scrapes bypass auth.
	rt.mux.HandleFunc("GET /healthz", rt.healthHandler.Live)
	rt.mux.HandleFunc("GET /readyz", rt.healthHandler.Ready)
	rt.mux.Handle("GET /metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/orders", rt.orderHandler.List)
	api.HandleFunc("POST /api/v1/orders", rt.orderHandler.Create)
	api.HandleFunc("GET /api/v1/orders/{id}", rt.orderHandler.Get)
	api.HandleFunc("PUT /api/v1/orders/{id}", rt.orderHandler.Update)
	api.HandleFunc("DELETE /api/v1/orders/{id}", rt.orderHandler.Delete)

	api.HandleFunc("GET /api/v1/products", rt.productHandler.List)
	api.HandleFunc("POST /api/v1/products", rt.productHandler.Create)
	api.HandleFunc("GET /api/v1/products/{id}", rt.productHandler.Get)
	api.HandleFunc("PUT /api/v1/products/{id}", rt.productHandler.Update)
	api.HandleFunc("DELETE /api/v1/products/{id}", rt.productHandler.Delete)

	var apiHandler http.Handler = api
	apiHandler = authMiddleware(apiHandler)
	if rt.rateLimit.Enabled {
		limiter := middleware.NewIPRateLimiter(float64(rt.rateLimit.RequestsPerMinute)/60, rt.rateLimit.Burst)
		apiHandler = middleware.RateLimit(limiter, rt.metrics.RateLimited)(apiHandler)
	}
	rt.mux.Handle("/api/", apiHandler)

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = rt.metrics.Middleware(handler)
	handler = middleware.CORS(rt.security.AllowedOrigins)(handler)
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
