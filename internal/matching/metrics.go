package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks optimizer cycles run.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_match_cycles_total",
		Help: "Total number of match ranking cycles run",
	})

	// CycleDurationSeconds tracks end-to-end match cycle latency.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghostload_match_cycle_duration_seconds",
		Help:    "Duration of a full match ranking cycle",
		Buckets: prometheus.DefBuckets,
	})

	// PairsAnalyzedTotal tracks opportunity/vehicle pairs analyzed.
	PairsAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_match_pairs_analyzed_total",
		Help: "Total number of opportunity/vehicle pairs run through the analyzer",
	})

	// CandidatesRetainedTotal tracks candidates clearing the feasibility floor.
	CandidatesRetainedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_match_candidates_retained_total",
		Help: "Total number of candidates retained above the feasibility floor",
	})

	// SnapshotErrorsTotal tracks skipped cycles due to fleet snapshot failure.
	SnapshotErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_match_snapshot_errors_total",
		Help: "Total number of match cycles skipped because the fleet snapshot failed",
	})

	// TopCandidates gauges the size of the current ranked list.
	TopCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghostload_match_top_candidates",
		Help: "Number of candidates in the current ranked top-K list",
	})
)
