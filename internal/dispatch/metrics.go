package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchedTotal counts assignments handed off to the carrier channel.
	DispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_dispatched_total",
		Help: "Total number of assignments dispatched",
	})

	// NotifyErrorsTotal counts failed notification attempts.
	NotifyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_dispatch_notify_errors_total",
		Help: "Total number of failed assignment notifications",
	})
)
