package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// EscrowOperations counts ledger operations by outcome.
	EscrowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_operations_total",
			Help: "Total number of escrow operations",
		},
		[]string{"operation", "outcome"}, // outcome: ok, rejected, error
	)

	// OutboxDispatches counts outbox delivery attempts.
	OutboxDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dispatch_total",
			Help: "Total number of outbox event dispatch attempts",
		},
		[]string{"status"}, // status: sent, failed
	)

	// FeedEntries counts feed projection results.
	FeedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_entries_total",
			Help: "Total number of activity feed projections",
		},
		[]string{"status"}, // status: written, duplicate, failed
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordEscrowOperation counts one ledger operation.
func RecordEscrowOperation(operation, outcome string) {
	EscrowOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordOutboxDispatch counts one delivery attempt.
func RecordOutboxDispatch(status string) {
	OutboxDispatches.WithLabelValues(status).Inc()
}

// RecordFeedEntry counts one feed projection.
func RecordFeedEntry(status string) {
	FeedEntries.WithLabelValues(status).Inc()
}
