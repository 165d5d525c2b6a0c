package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/order-service/pkg/logger"
)

// Metrics bundles prometheus collectors used by the service. It implements
// logger.Observer, postgres.PoolObserver, port.RetentionObserver and
// scheduler.Observer.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	RateLimitDropped   prometheus.Counter

	LogRecordsTotal  *prometheus.CounterVec
	LogSinkFailures  *prometheus.CounterVec
	PoolInUse        prometheus.Gauge
	PoolAcquireFails prometheus.Counter

	RetentionRuns    *prometheus.CounterVec
	RetentionDeleted prometheus.Counter
	JobDurationSec   *prometheus.HistogramVec
	JobSkipped       *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_service_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_service_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_service_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		LogRecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_service_log_records_total",
			Help: "Total number of log records dispatched to sinks.",
		}, []string{"level"}),
		LogSinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_service_log_sink_failures_total",
			Help: "Total number of failed, timed out, dropped or panicking sink writes.",
		}, []string{"sink", "kind"}),
		PoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "order_service_db_connections_in_use",
			Help: "Database connections currently checked out of the pool.",
		}),
		PoolAcquireFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_service_db_acquire_timeouts_total",
			Help: "Total number of connection acquisitions that hit the acquire timeout.",
		}),
		RetentionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_service_log_retention_runs_total",
			Help: "Total number of log retention passes.",
		}, []string{"result"}),
		RetentionDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_service_log_retention_deleted_total",
			Help: "Total number of log rows removed by retention.",
		}),
		JobDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_service_job_duration_seconds",
			Help:    "Scheduled job duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job", "result"}),
		JobSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_service_job_skipped_total",
			Help: "Total number of scheduled passes skipped because one was running.",
		}, []string{"job"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RateLimitDropped,
		m.LogRecordsTotal,
		m.LogSinkFailures,
		m.PoolInUse,
		m.PoolAcquireFails,
		m.RetentionRuns,
		m.RetentionDeleted,
		m.JobDurationSec,
		m.JobSkipped,
	)

	return m
}

func (m *Metrics) RecordLogged(level logger.Level) {
	m.LogRecordsTotal.WithLabelValues(level.String()).Inc()
}

func (m *Metrics) SinkFailed(sink, kind string) {
	m.LogSinkFailures.WithLabelValues(sink, kind).Inc()
}

func (m *Metrics) AcquireTimedOut() {
	m.PoolAcquireFails.Inc()
}

func (m *Metrics) InUseChanged(n int64) {
	m.PoolInUse.Set(float64(n))
}

func (m *Metrics) RetentionCompleted(deleted int64) {
	m.RetentionRuns.WithLabelValues("success").Inc()
	m.RetentionDeleted.Add(float64(deleted))
}

func (m *Metrics) RetentionFailed() {
	m.RetentionRuns.WithLabelValues("error").Inc()
}

func (m *Metrics) RunFinished(job string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.JobDurationSec.WithLabelValues(job, result).Observe(d.Seconds())
}

func (m *Metrics) RunSkipped(job string) {
	m.JobSkipped.WithLabelValues(job).Inc()
}

func (m *Metrics) RateLimited() {
	m.RateLimitDropped.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute collapses IDs so label cardinality stays bounded.
func normalizeRoute(path string) string {
	switch {
	case path == "/api/v1/orders" || path == "/api/v1/products":
		return path
	case strings.HasPrefix(path, "/api/v1/orders/"):
		return "/api/v1/orders/{id}"
	case strings.HasPrefix(path, "/api/v1/products/"):
		return "/api/v1/products/{id}"
	case path == "/healthz" || path == "/readyz" || path == "/metrics":
		return path
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
