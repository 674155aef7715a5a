package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// GasBalance is the native token balance funding transaction fees.
	GasBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_gas_balance",
		Help: "Native token balance of the venue A trading wallet",
	})

	// CollateralBalance is the USDC available for venue A orders.
	CollateralBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_collateral_balance",
		Help: "USDC balance of the venue A trading wallet (USD)",
	})

	// CollateralAllowance is the USDC approved to the exchange contract.
	CollateralAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_collateral_allowance",
		Help: "USDC allowance approved to the venue A exchange (USD)",
	})

	// ActivePositions is the number of open outcome-token positions.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_active_positions",
		Help: "Number of open venue A positions",
	})

	// PositionValue is the current USD value of all open positions.
	PositionValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_position_value",
		Help: "Sum of current venue A position values (USD)",
	})

	// PositionCost is the cost basis of all open positions.
	PositionCost = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_position_cost",
		Help: "Sum of venue A position cost bases (USD)",
	})

	// UnrealizedPnL is the mark-to-market profit across open positions.
	UnrealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_unrealized_pnl",
		Help: "Unrealized P&L across venue A positions (USD)",
	})

	// PortfolioValue is collateral plus open position value.
	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_portfolio_value",
		Help: "Collateral plus venue A position value (USD)",
	})

	// UpdateErrorsTotal counts failed wallet polls.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_wallet_update_errors_total",
		Help: "Total failed wallet update attempts",
	})

	// UpdateDuration is the wall time of one wallet poll.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp marks the last successful poll.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})
)
