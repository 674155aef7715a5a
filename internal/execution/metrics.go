package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal tracks dual-leg placements by outcome.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_execution_trades_total",
		Help: "Total dual-leg placements by outcome",
	}, []string{"result"})

	// ContractsTotal tracks contracts placed across executed trades.
	ContractsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_execution_contracts_total",
		Help: "Total contracts placed across executed trades",
	})

	// SkipsTotal tracks pre-placement skips by reason.
	SkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_execution_skips_total",
		Help: "Total executions skipped before placement, by reason",
	}, []string{"reason"})

	// PartialFillsTotal tracks one-legged outcomes requiring intervention.
	PartialFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_execution_partial_fills_total",
		Help: "Total critical partial fills",
	})

	// ExecutionDurationSeconds tracks end-to-end Execute latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_execution_duration_seconds",
		Help:    "Duration of one execution pipeline run",
		Buckets: prometheus.DefBuckets,
	})

	// FillVerificationsTotal tracks post-trade fill checks by outcome.
	FillVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_execution_fill_verifications_total",
		Help: "Total post-trade fill verifications by outcome",
	}, []string{"result"})
)
