package bootstrap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Values handed out partitioned by generator key and strategy
	generatedValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgen_generated_values_total",
			Help: "Total number of values produced by generators",
		},
		[]string{"generator", "strategy"},
	)

	// Failed generations partitioned by generator key and error class
	generationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idgen_generation_failures_total",
			Help: "Total number of failed value generations",
		},
		[]string{"generator", "reason"},
	)
)
