package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epcsync"

var (
	// Pipeline metrics
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents that reached a terminal or review state, by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_attempts_total",
			Help:      "Extraction attempts by result (valid, invalid, transport_error)",
		},
		[]string{"result"},
	)

	CatalogRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Catalog create requests by entity and HTTP status",
		},
		[]string{"entity", "status"},
	)

	CatalogRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_retries_total",
			Help:      "Catalog create retries by entity",
		},
		[]string{"entity"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsProcessed,
		ExtractionAttempts,
		CatalogRequests,
		CatalogRetries,
		StageDuration,
		HTTPRequests,
		HTTPRequestDuration,
	)
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, started time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordRequest records an HTTP request.
func RecordRequest(method, path, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
