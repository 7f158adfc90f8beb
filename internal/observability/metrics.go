// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	EvaluationsTotal  *prometheus.CounterVec
	EvaluationErrors  *prometheus.CounterVec
	EvaluationLatency *prometheus.HistogramVec
	JournalErrors     prometheus.Counter

	// Snapshot metrics
	SnapshotRunsTotal      *prometheus.CounterVec
	SnapshotDuration       prometheus.Histogram
	SnapshotsWritten       prometheus.Counter
	SnapshotClassErrors    *prometheus.CounterVec
	ClassesInCrisis        prometheus.Gauge
	LastSuccessfulSnapshot prometheus.Gauge

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimited         prometheus.Counter
	FeedClients         prometheus.Gauge
	FeedMessages        prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on its own registry,
// together with the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "debond"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Engine metrics
		EvaluationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Total number of engine evaluations by operation and status",
		}, []string{"operation", "status"}),
		EvaluationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_errors_total",
			Help:      "Total number of failed evaluations by operation and error kind",
		}, []string{"operation", "kind"}),
		EvaluationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_latency_seconds",
			Help:      "Engine evaluation latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"operation"}),
		JournalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "journal_errors_total",
			Help:      "Total number of evaluations that could not be journaled",
		}),

		// Snapshot metrics
		SnapshotRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs by status",
		}, []string{"status"}),
		SnapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Snapshot run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		SnapshotsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "written_total",
			Help:      "Total number of rate snapshots written",
		}),
		SnapshotClassErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "class_errors_total",
			Help:      "Total number of bond classes that failed evaluation by error kind",
		}, []string{"kind"}),
		ClassesInCrisis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "classes_in_crisis",
			Help:      "Number of bond classes in crisis at the last snapshot",
		}),
		LastSuccessfulSnapshot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot run",
		}),

		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		FeedClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected auction feed clients",
		}),
		FeedMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Total number of auction price messages sent",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// Init replaces DefaultMetrics with a fresh instance under namespace.
// Call once at startup, before any component records.
func Init(namespace string) {
	DefaultMetrics = NewMetrics(namespace)
}

// Handler returns the /metrics handler of DefaultMetrics.
func Handler() http.Handler {
	return DefaultMetrics.Handler()
}

// RecordEvaluation records one engine evaluation.
func RecordEvaluation(operation, errKind string, seconds float64) {
	DefaultMetrics.EvaluationLatency.WithLabelValues(operation).Observe(seconds)
	if errKind == "" {
		DefaultMetrics.EvaluationsTotal.WithLabelValues(operation, StatusOK).Inc()
		return
	}
	DefaultMetrics.EvaluationsTotal.WithLabelValues(operation, StatusError).Inc()
	DefaultMetrics.EvaluationErrors.WithLabelValues(operation, errKind).Inc()
}

// RecordJournalError increments the journal failure counter.
func RecordJournalError() {
	DefaultMetrics.JournalErrors.Inc()
}

// RecordSnapshotRun records a snapshot run.
func RecordSnapshotRun(status string, durationSeconds float64, written, inCrisis int, finishedUnix int64) {
	DefaultMetrics.SnapshotRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SnapshotDuration.Observe(durationSeconds)
	if status != StatusOK {
		return
	}
	DefaultMetrics.SnapshotsWritten.Add(float64(written))
	DefaultMetrics.ClassesInCrisis.Set(float64(inCrisis))
	DefaultMetrics.LastSuccessfulSnapshot.Set(float64(finishedUnix))
}

// RecordSnapshotClassError counts a bond class skipped by a snapshot run.
func RecordSnapshotClassError(kind string) {
	DefaultMetrics.SnapshotClassErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	DefaultMetrics.RateLimited.Inc()
}

// FeedClientConnected adjusts the feed client gauge by delta.
func FeedClientConnected(delta int) {
	DefaultMetrics.FeedClients.Add(float64(delta))
}

// RecordFeedMessage counts one auction price message.
func RecordFeedMessage() {
	DefaultMetrics.FeedMessages.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
