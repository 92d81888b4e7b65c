package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sandboxQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybox_sandbox_queries_total",
			Help: "Total number of sandbox query requests by outcome.",
		},
		[]string{"outcome"},
	)
	sandboxQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querybox_sandbox_query_duration_seconds",
			Help:    "Sandbox query execution latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	sandboxRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querybox_sandbox_rows_returned",
			Help:    "Number of rows returned per successful sandbox query.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)
	sandboxTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querybox_sandbox_timeouts_total",
			Help: "Total number of sandbox queries that hit the deadline.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sandboxQueriesTotal,
		sandboxQueryDurationSeconds,
		sandboxRowsReturned,
		sandboxTimeoutsTotal,
	)
}

func ObserveSandboxQuery(outcome string, rows int, elapsed time.Duration) {
	sandboxQueriesTotal.WithLabelValues(outcome).Inc()
	sandboxQueryDurationSeconds.Observe(elapsed.Seconds())
	if outcome == "success" {
		sandboxRowsReturned.Observe(float64(rows))
	}
}

func IncrementSandboxTimeout() {
	sandboxTimeoutsTotal.Inc()
}
