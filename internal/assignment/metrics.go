package assignment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal tracks commit attempts by outcome.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostload_assignment_commits_total",
			Help: "Total number of assignment commit attempts",
		},
		[]string{"outcome"},
	)

	// CommittedProfit accumulates net profit across committed assignments.
	CommittedProfit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_assignment_committed_profit_total",
		Help: "Cumulative committed net profit in dollars",
	})

	// ActiveAssignments gauges assignments currently in flight.
	ActiveAssignments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghostload_assignment_active",
		Help: "Number of assignments currently active",
	})
)
