// Package metrics exposes Prometheus collectors for scraping operations.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "shopwalk"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	paginationAttempts *prometheus.HistogramVec
	extractionPasses   prometheus.Histogram
	missingFields      *prometheus.CounterVec

	activeSessions prometheus.Gauge
	sessionErrors  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec

	handler http.Handler
}

// New registers the collectors on the default registry.
func New(logger *slog.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry registers the collectors on registerer. When registerer is
// also a Gatherer the handler serves from it.
func NewWithRegistry(registerer prometheus.Registerer, logger *slog.Logger) *Metrics {
	m := &Metrics{}

	// Operation metrics
	m.operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "operations_total",
		Help:      "Total scraping operations by operation and status",
	}, []string{"operation", "status"}) // status: success or an error code

	m.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Time spent in a scraping operation, session lifecycle included",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9), // 1s to ~4m
	}, []string{"operation"})

	// Extraction metrics
	m.paginationAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "listing",
		Name:      "scroll_attempts",
		Help:      "Scroll cycles spent expanding a result list, by stop reason",
		Buckets:   prometheus.LinearBuckets(0, 5, 7),
	}, []string{"reason"})

	m.extractionPasses = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "extract",
		Name:      "passes",
		Help:      "Extraction passes needed per detail page",
		Buckets:   prometheus.LinearBuckets(1, 1, 5),
	})

	m.missingFields = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "extract",
		Name:      "missing_fields_total",
		Help:      "Required fields still absent after the retry budget",
	}, []string{"field"})

	// Session metrics
	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "browser",
		Name:      "active_sessions",
		Help:      "Number of live browser sessions",
	})

	m.sessionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "browser",
		Name:      "session_errors_total",
		Help:      "Browser session failures by phase",
	}, []string{"phase"}) // phase: open, close

	// HTTP metrics
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	registerer.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.paginationAttempts,
		m.extractionPasses,
		m.missingFields,
		m.activeSessions,
		m.sessionErrors,
		m.httpRequests,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	m.handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	if logger != nil {
		logger.Debug("prometheus metrics initialized", "component", "metrics")
	}
	return m
}

// RecordOperation records an operation outcome and its duration.
func (m *Metrics) RecordOperation(op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordPagination records how many scroll cycles a listing took.
func (m *Metrics) RecordPagination(reason string, attempts int) {
	if m == nil {
		return
	}
	m.paginationAttempts.WithLabelValues(reason).Observe(float64(attempts))
}

// RecordExtraction records the passes used and every field left missing.
func (m *Metrics) RecordExtraction(passes int, missing []string) {
	if m == nil {
		return
	}
	m.extractionPasses.Observe(float64(passes))
	for _, f := range missing {
		m.missingFields.WithLabelValues(f).Inc()
	}
}

// SessionOpened increments the live session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the live session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// RecordSessionError records a session failure in phase.
func (m *Metrics) RecordSessionError(phase string) {
	if m == nil {
		return
	}
	m.sessionErrors.WithLabelValues(phase).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}

// Handler serves the exposition format. A nil *Metrics serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}
