// Package metrics provides Prometheus metrics for the memory pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsAppended tracks events written to the store by extractor
	EventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "events",
			Name:      "appended_total",
			Help:      "Total number of events appended to the store",
		},
		[]string{"extractor"},
	)

	// EventsRejected tracks events rejected at the validation boundary
	EventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "events",
			Name:      "rejected_total",
			Help:      "Total number of events rejected by validation",
		},
	)

	// ExtractionFallbacks tracks inference failures that fell back to rules
	ExtractionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "extraction",
			Name:      "fallbacks_total",
			Help:      "Total number of extractions that fell back to the rule extractor",
		},
	)

	// ExtractionDuration tracks extraction latency by extractor
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dirsoul",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Duration of extraction calls in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"extractor"},
	)

	// ViewsCreated tracks derived views created by pattern family
	ViewsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "views",
			Name:      "created_total",
			Help:      "Total number of derived views created",
		},
		[]string{"view_type"},
	)

	// GateDecisions tracks promotion gate outcomes
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total number of promotion gate decisions",
		},
		[]string{"decision"},
	)

	// ConflictsDetected tracks conflicting view pairs found per sweep
	ConflictsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "conflicts",
			Name:      "detected_total",
			Help:      "Total number of conflicting view pairs detected",
		},
	)

	// SweepDuration tracks per-user sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dirsoul",
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of per-user sweep cycles in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// SweepLockContention tracks sweeps skipped because another held the lock
	SweepLockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "sweep",
			Name:      "lock_contention_total",
			Help:      "Total number of per-user sweeps skipped due to lock contention",
		},
	)

	// KafkaMessagesPublished tracks lifecycle events published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of lifecycle events published to Kafka",
		},
		[]string{"event_type", "status"},
	)

	// StorageWriteRetries tracks transient write retries to the event store
	StorageWriteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "storage",
			Name:      "write_retries_total",
			Help:      "Total number of retried event store writes",
		},
	)

	// DegradedReads tracks aggregate reads served from the stale cache
	DegradedReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dirsoul",
			Subsystem: "storage",
			Name:      "degraded_reads_total",
			Help:      "Total number of aggregate reads served from the stale cache",
		},
	)
)

// RecordGateDecision records a promotion gate outcome
func RecordGateDecision(decision string) {
	GateDecisions.WithLabelValues(decision).Inc()
}

// RecordKafkaPublish records a lifecycle event publish attempt
func RecordKafkaPublish(eventType, status string) {
	KafkaMessagesPublished.WithLabelValues(eventType, status).Inc()
}
