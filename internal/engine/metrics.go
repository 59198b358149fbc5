package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themis_sweeps_total",
		Help: "Parametric fairness-budget sweeps executed.",
	})

	chainRepairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themis_chain_repairs_total",
		Help: "Chain transitions that required a repair instead of a direct extension.",
	})

	chainBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "themis_chain_build_seconds",
		Help:    "Wall time to build a full monotonic allocation chain.",
		Buckets: prometheus.DefBuckets,
	})
)
