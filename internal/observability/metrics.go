package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	auditRunsTotal      *prometheus.CounterVec
	auditRunSeconds     *prometheus.HistogramVec
	evidenceRejected    *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
	feedClientsActive   prometheus.Gauge
	catalogRecordsGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civiclens_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		auditRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_audit_runs_total",
			Help: "Audit pipeline runs by terminal outcome.",
		}, []string{"outcome"})

		auditRunSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civiclens_audit_run_seconds",
			Help:    "End-to-end duration of audit pipeline runs.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"})

		evidenceRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_evidence_rejected_total",
			Help: "Evidence uploads rejected before storage.",
		}, []string{"reason"})

		eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_audit_events_published_total",
			Help: "Audit events published to brokers.",
		}, []string{"outcome"})

		feedClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "civiclens_feed_clients_active",
			Help: "Websocket clients currently subscribed to the audit feed.",
		})

		catalogRecordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "civiclens_catalog_records",
			Help: "Project records currently held in the geo index snapshot.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			auditRunsTotal,
			auditRunSeconds,
			evidenceRejected,
			eventsPublished,
			feedClientsActive,
			catalogRecordsGauge,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AuditRuns exposes the counter of terminal audit outcomes.
func AuditRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return auditRunsTotal
}

// AuditRunDuration exposes the end-to-end audit duration histogram.
func AuditRunDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return auditRunSeconds
}

// EvidenceRejected exposes the counter of rejected evidence uploads.
func EvidenceRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return evidenceRejected
}

// EventsPublished exposes the counter of published audit events.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublished
}

// FeedClients exposes the gauge of active audit feed subscribers.
func FeedClients() prometheus.Gauge {
	RegisterMetrics()
	return feedClientsActive
}

// CatalogRecords exposes the gauge of indexed project records.
func CatalogRecords() prometheus.Gauge {
	RegisterMetrics()
	return catalogRecordsGauge
}
