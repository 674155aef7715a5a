package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairsEvaluatedTotal tracks evaluation passes over matched pairs and
	// same-market books.
	PairsEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_arb_pairs_evaluated_total",
		Help: "Total number of pair evaluations performed",
	})

	// PairsRejectedTotal tracks evaluations that produced no opportunity, by reason.
	PairsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_arb_pairs_rejected_total",
			Help: "Total number of evaluations rejected",
		},
		[]string{"reason"},
	)

	// OpportunitiesFoundTotal tracks emitted opportunities by strategy.
	OpportunitiesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_arb_opportunities_found_total",
			Help: "Total number of profitable opportunities emitted",
		},
		[]string{"strategy"},
	)

	// NetProfitCents tracks per-contract net profit of emitted opportunities.
	NetProfitCents = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossarb_arb_net_profit_cents",
			Help:    "Per-contract net profit of emitted opportunities in cents",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		},
		[]string{"strategy"},
	)
)
