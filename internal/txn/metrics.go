package txn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by outcome",
		},
		[]string{"operation", "status"},
	)

	persistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_persist_duration_seconds",
			Help:    "Duration of snapshot writes",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2},
		},
		[]string{"store"},
	)

	rollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_rollbacks_total",
			Help: "Total number of in-memory rollbacks after a failed snapshot write",
		},
	)

	compensationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_compensation_failures_total",
			Help: "Total number of failed compensating snapshot writes after a persist timeout",
		},
	)

	publishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_event_publish_errors_total",
			Help: "Total number of ledger event publish failures",
		},
	)
)
