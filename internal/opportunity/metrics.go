package opportunity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedTotal tracks opportunities accepted by the registry.
	IngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_opportunities_ingested_total",
		Help: "Total number of opportunities ingested into the registry",
	})

	// DuplicatesSkippedTotal tracks source redeliveries dropped by dedup.
	DuplicatesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_opportunities_duplicates_skipped_total",
		Help: "Total number of duplicate source records skipped on ingest",
	})

	// StatusTransitionsTotal tracks lifecycle transitions by target status.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostload_opportunity_status_transitions_total",
			Help: "Total number of opportunity status transitions",
		},
		[]string{"to"},
	)

	// SweepExpiredTotal tracks opportunities expired by the retention sweep.
	SweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_sweep_expired_total",
		Help: "Total number of opportunities expired by the retention sweep",
	})

	// SweepRemovedTotal tracks terminal opportunities removed by the sweep.
	SweepRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_sweep_removed_total",
		Help: "Total number of terminal opportunities removed by the retention sweep",
	})

	// OpenOpportunities gauges the current non-terminal population.
	OpenOpportunities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghostload_open_opportunities",
		Help: "Current number of non-terminal opportunities in the registry",
	})
)
