package insertion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlansTotal tracks feasible insertion plans by class.
	PlansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostload_insertion_plans_total",
			Help: "Total number of feasible insertion plans produced",
		},
		[]string{"class"},
	)

	// RejectedTotal tracks infeasible pairs by reason.
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostload_insertion_rejected_total",
			Help: "Total number of opportunity/vehicle pairs rejected as infeasible",
		},
		[]string{"reason"},
	)
)
