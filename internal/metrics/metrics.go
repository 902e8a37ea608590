// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "companion"

// Turn outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeRejected = "rejected"
)

// Fallback stages.
const (
	StageClassify     = "classify"
	StageGenerate     = "generate"
	StagePersist      = "persist"
	StageRelationship = "relationship"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "turns_total",
			Help:      "Handled turns by outcome.",
		},
		[]string{"outcome"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "turn_duration_seconds",
			Help:      "HandleTurn latency, excluding collaborator dispatch.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "fallbacks_total",
			Help:      "Pipeline stages that failed and fell back to a default.",
		},
		[]string{"stage"},
	)

	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emotion",
			Name:      "classifications_total",
			Help:      "Classified utterances by primary emotion.",
		},
		[]string{"emotion"},
	)

	RelationshipUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relationship",
			Name:      "updates_total",
			Help:      "Applied relationship transitions by interaction kind.",
		},
		[]string{"kind"},
	)

	RelationshipRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relationship",
			Name:      "stale_retries_total",
			Help:      "Read-modify-write cycles retried after a stale update.",
		},
	)

	StoreHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "healthy",
			Help:      "1 when the last store probe succeeded.",
		},
	)

	DispatchSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "submissions_total",
			Help:      "Jobs accepted for execution.",
		},
		[]string{"shard"},
	)

	DispatchQueueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_full_total",
			Help:      "Enqueue attempts that timed out on a full shard.",
		},
		[]string{"shard"},
	)

	DispatchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "failures_total",
			Help:      "Jobs that failed after exhausting retries.",
		},
		[]string{"shard"},
	)

	DispatchRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "run_duration_seconds",
			Help:      "Job execution latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)

	DispatchQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Current depth of each shard queue.",
		},
		[]string{"shard"},
	)
)

// ShardLabel formats a shard index as a label value.
func ShardLabel(i int) string { return strconv.Itoa(i) }
