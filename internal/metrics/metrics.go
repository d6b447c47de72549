package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the exporter's own collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter
	PollCycles         *prometheus.CounterVec
	FetchFailures      prometheus.Counter
	CycleDurationSec   prometheus.Histogram
	LastCycleTimestamp prometheus.Gauge
	ManagedProjects    prometheus.Gauge
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tag_exporter_http_requests_total",
			Help: "Total number of exporter HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tag_exporter_http_request_duration_seconds",
			Help:    "Exporter HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tag_exporter_auth_failures_total",
			Help: "Total number of rejected manual run requests.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tag_exporter_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tag_exporter_poll_cycles_total",
			Help: "Total number of poll cycles by trigger.",
		}, []string{"trigger"}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tag_exporter_fetch_failures_total",
			Help: "Total number of failed project tag fetches.",
		}),
		CycleDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tag_exporter_poll_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastCycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tag_exporter_last_cycle_timestamp_seconds",
			Help: "Unix time the last poll cycle finished.",
		}),
		ManagedProjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tag_exporter_managed_projects",
			Help: "Number of configured projects resolved at startup.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.AuthFailures,
		m.RateLimitDropped,
		m.PollCycles,
		m.FetchFailures,
		m.CycleDurationSec,
		m.LastCycleTimestamp,
		m.ManagedProjects,
	)

	return m
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := routePattern(r)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// routePattern keeps label cardinality bounded: unmatched paths collapse into "other".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "other"
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "other"
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
