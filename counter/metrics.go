package counter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgen_counter_rounds_total",
			Help: "Counter fetch rounds by structure and outcome",
		},
		[]string{"structure", "outcome"},
	)

	casConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgen_counter_cas_conflicts_total",
			Help: "Conditional updates that lost the race and were retried",
		},
		[]string{"structure"},
	)

	roundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idgen_counter_round_duration_seconds",
			Help:    "Duration of one counter fetch including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"structure"},
	)
)
