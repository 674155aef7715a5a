package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled indicates whether trades may execute (1=yes, 0=halted).
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_circuit_breaker_enabled",
		Help: "Whether the circuit breaker allows trade execution (1=enabled, 0=tripped)",
	})

	// BreakerBalance tracks the last checked venue B balance.
	BreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_circuit_breaker_balance_dollars",
		Help: "Last checked venue B portfolio balance in dollars",
	})

	// BreakerThreshold tracks the configured minimum balance floor.
	BreakerThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_circuit_breaker_threshold_dollars",
		Help: "Minimum balance floor below which trading halts",
	})

	// StateChangesTotal counts trip and reset transitions.
	StateChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_circuit_breaker_state_changes_total",
		Help: "Total circuit breaker state transitions",
	})

	// CheckDurationSeconds tracks balance check latency.
	CheckDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_circuit_breaker_check_duration_seconds",
		Help:    "Time taken to check the venue B balance",
		Buckets: prometheus.DefBuckets,
	})
)
