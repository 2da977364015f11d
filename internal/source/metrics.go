package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostingsFetchedTotal tracks raw postings received from the board.
	PostingsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_source_postings_fetched_total",
		Help: "Total number of raw postings fetched from the opportunity source",
	})

	// FetchErrorsTotal tracks failed source fetches.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostload_source_fetch_errors_total",
		Help: "Total number of failed opportunity source fetches",
	})
)
