package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairsTracked gauges the matched pairs under active scan.
	PairsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_orchestrator_pairs_tracked",
		Help: "Matched cross-venue pairs currently scanned",
	})

	// ScansTotal counts scan loop iterations.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_scans_total",
		Help: "Total scan loop iterations",
	})

	// ScanDurationSeconds tracks one full scan pass.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_orchestrator_scan_duration_seconds",
		Help:    "Duration of one scan pass over all pairs",
		Buckets: prometheus.DefBuckets,
	})

	// RefreshesTotal counts discovery refresh outcomes.
	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_refreshes_total",
		Help: "Total market discovery refreshes by result",
	}, []string{"result"})

	// SkipsTotal counts pairs skipped during scans, by reason.
	SkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_skips_total",
		Help: "Pairs skipped during scans, by reason",
	}, []string{"reason"})

	// PositionsOpen gauges open positions per track.
	PositionsOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crossarb_orchestrator_positions_open",
		Help: "Open positions per strategy track",
	}, []string{"track"})

	// ExitsTotal counts position exits by trigger.
	ExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_exits_total",
		Help: "Position exits by trigger",
	}, []string{"trigger"})

	// MarkPnlCents gauges the open cross-venue position's marked PnL.
	MarkPnlCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_orchestrator_mark_pnl_cents",
		Help: "Mark-to-market PnL of the open cross-venue position in cents",
	})

	// SettlementLagsTotal counts observation-only settlement lag findings.
	SettlementLagsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_settlement_lags_total",
		Help: "Resolved markets still trading away from payoff",
	})

	// PollFailuresTotal counts venue B poll failures.
	PollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_orchestrator_poll_failures_total",
		Help: "Venue B market poll failures",
	})
)
