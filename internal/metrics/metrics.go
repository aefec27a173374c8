package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPrefix = "homeswift"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter *prometheus.CounterVec

	// Listing metrics
	PropertyOperationsCounter *prometheus.CounterVec
	PropertyViewsCounter      prometheus.Counter
	SearchRequestsCounter     prometheus.Counter

	RateLimitedCounter *prometheus.CounterVec
}

// New registers every collector on reg under prefix.
func New(reg *prometheus.Registry, prefix string) *Metrics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		AuthAttemptsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_attempts_total",
				Help: "Authentication attempts by method and result",
			},
			[]string{"method", "result"},
		),
		PropertyOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_property_operations_total",
				Help: "Total number of property write operations",
			},
			[]string{"operation"},
		),
		PropertyViewsCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_property_views_total",
				Help: "Property views counted after per-session dedup",
			},
		),
		SearchRequestsCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_search_requests_total",
				Help: "Total number of search requests",
			},
		),
		RateLimitedCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
	}
}

// NewDefault registers on a fresh registry that also carries the Go and
// process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg, DefaultPrefix)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HttpRequestDuration.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordAuthAttempt(method string, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.AuthAttemptsCounter.WithLabelValues(method, result).Inc()
}

func (m *Metrics) RecordPropertyOperation(operation string) {
	if m == nil {
		return
	}
	m.PropertyOperationsCounter.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordPropertyView() {
	if m == nil {
		return
	}
	m.PropertyViewsCounter.Inc()
}

func (m *Metrics) RecordSearch() {
	if m == nil {
		return
	}
	m.SearchRequestsCounter.Inc()
}

func (m *Metrics) RecordRateLimited(path string) {
	if m == nil {
		return
	}
	m.RateLimitedCounter.WithLabelValues(path).Inc()
}
