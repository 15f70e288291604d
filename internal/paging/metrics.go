package paging

import "github.com/prometheus/client_golang/prometheus"

var (
	// pageLoads counts Mediator loads by load type and outcome
	// (loaded, end, error).
	pageLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogbreeds_page_loads_total",
			Help: "Total number of page loads by load type and outcome.",
		},
		[]string{"load_type", "outcome"},
	)

	pageLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dogbreeds_page_load_duration_seconds",
			Help:    "Duration of page loads in seconds, including the remote fetch and cache write.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"load_type"},
	)

	breedsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dogbreeds_breeds_upserted_total",
			Help: "Total number of breed rows written to the cache by page loads.",
		},
	)

	rowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dogbreeds_rows_dropped_total",
			Help: "Fetched rows discarded because they had no id.",
		},
	)

	// openSessions gauges live paging sessions.
	openSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dogbreeds_paging_sessions_open",
			Help: "Current number of open paging sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(pageLoads, pageLoadDuration, breedsUpserted, rowsDropped, openSessions)
}
