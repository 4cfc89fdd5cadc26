// Package metrics exposes Prometheus instrumentation for the sync core.
// Collectors are registered via promauto on the default registry and
// served by the HTTP server at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsPublished counts envelopes appended to event streams.
	// Labels: tenant, event_type.
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "publish",
			Name:      "events_total",
			Help:      "Events published to sync streams",
		},
		[]string{"tenant", "event_type"},
	)

	// acksProcessed counts acknowledgment messages by disposition.
	// Labels: result ("ok", "error", "unknown_event", "malformed").
	acksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "acks",
			Name:      "processed_total",
			Help:      "Acknowledgment messages processed by the consumer",
		},
		[]string{"result"},
	)

	// ackLatency observes publish-to-ack latency for acknowledged events.
	ackLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wrapsync",
			Subsystem: "acks",
			Name:      "latency_seconds",
			Help:      "Latency between publish and acknowledgment",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		},
	)

	// trackingExpired counts records swept to EXPIRED.
	trackingExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "tracking",
			Name:      "expired_total",
			Help:      "Tracking records expired without an acknowledgment",
		},
	)

	// workflowsFinished counts workflow executions reaching a terminal state.
	// Labels: workflow_type, state.
	workflowsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "workflow",
			Name:      "finished_total",
			Help:      "Workflow executions by terminal state",
		},
		[]string{"workflow_type", "state"},
	)

	// activityOutcomes counts activity attempts by outcome.
	// Labels: activity, outcome.
	activityOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "workflow",
			Name:      "activity_attempts_total",
			Help:      "Activity attempts by outcome",
		},
		[]string{"activity", "outcome"},
	)

	// tasksReclaimed counts leased tasks returned to availability after
	// their lease expired (worker death or timeout).
	tasksReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "taskqueue",
			Name:      "reclaimed_total",
			Help:      "Expired task leases reclaimed by the sweeper",
		},
	)
)

// EventPublished records a successful publish.
func EventPublished(tenant, eventType string) {
	eventsPublished.WithLabelValues(tenant, eventType).Inc()
}

// AckProcessed records an ack disposition.
func AckProcessed(result string) {
	acksProcessed.WithLabelValues(result).Inc()
}

// AckLatencySeconds records publish-to-ack latency.
func AckLatencySeconds(s float64) {
	ackLatency.Observe(s)
}

// TrackingExpired records one expired tracking record.
func TrackingExpired() {
	trackingExpired.Inc()
}

// WorkflowFinished records a workflow reaching a terminal state.
func WorkflowFinished(workflowType, state string) {
	workflowsFinished.WithLabelValues(workflowType, state).Inc()
}

// ActivityAttempt records one activity attempt outcome.
func ActivityAttempt(activity, outcome string) {
	activityOutcomes.WithLabelValues(activity, outcome).Inc()
}

// TasksReclaimed records expired leases returned to the queue.
func TasksReclaimed(n int) {
	tasksReclaimed.Add(float64(n))
}

var (
	storageCommitLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wrapsync",
			Subsystem: "storage",
			Name:      "commit_seconds",
			Help:      "Batch commit latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)
	storageReadLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wrapsync",
			Subsystem: "storage",
			Name:      "read_seconds",
			Help:      "Point read latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)
	storageBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wrapsync",
			Subsystem: "storage",
			Name:      "bytes_total",
			Help:      "Bytes moved through the storage layer",
		},
		[]string{"op"},
	)
)

// StorageHook satisfies the pebble store's MetricsHook interface.
type StorageHook struct{}

func (StorageHook) ObserveRead(elapsed time.Duration, bytes int) {
	storageReadLatency.Observe(elapsed.Seconds())
	storageBytes.WithLabelValues("read").Add(float64(bytes))
}

func (StorageHook) ObserveBatchCommit(elapsed time.Duration, bytes int) {
	storageCommitLatency.Observe(elapsed.Seconds())
	storageBytes.WithLabelValues("commit").Add(float64(bytes))
}
