package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts started scan cycles.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_scans_total",
		Help: "Total number of scan cycles started",
	})

	// ScansSkippedTotal counts cycles skipped because the previous one was
	// still running.
	ScansSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_scans_skipped_total",
		Help: "Total number of scan cycles skipped due to overlap",
	})

	// ScanErrorsTotal counts failed scan cycles.
	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_scan_errors_total",
		Help: "Total number of scan cycles that failed",
	})

	// ScanDurationSeconds observes scan cycle duration.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostload_scan_duration_seconds",
		Help:    "Duration of scan cycles in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
