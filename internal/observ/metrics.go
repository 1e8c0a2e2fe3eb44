package observ

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SubmissionsAccepted counts ledger appends that committed, by parish.
	SubmissionsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterwatch_submissions_accepted_total",
		Help: "Inspection submissions durably appended to the ledger.",
	}, []string{"parish"})

	// DeltasBroadcast counts change-notifier fanouts by event type. A
	// broadcast is counted once per event, not per subscriber.
	DeltasBroadcast = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waterwatch_deltas_broadcast_total",
		Help: "Deltas handed to the change notifier after a committed write.",
	}, []string{"event"})

	// DeltasDropped counts deliveries skipped because a subscriber's send
	// buffer was full. Dropped deltas are expected under the at-most-once
	// contract; clients recover by re-pulling the rollup.
	DeltasDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waterwatch_deltas_dropped_total",
		Help: "Delta deliveries dropped due to slow or absent subscribers.",
	})

	// RollupDuration observes how long a full rollup fold takes.
	RollupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "waterwatch_rollup_duration_seconds",
		Help:    "Wall time spent computing a monthly rollup.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SubmissionsAccepted,
		DeltasBroadcast,
		DeltasDropped,
		RollupDuration,
	)
}
