package wallet

import (
	"testing"
)

func TestMetrics_Registration(t *testing.T) {
	if GasBalance == nil {
		t.Error("GasBalance not registered")
	}

	if CollateralBalance == nil {
		t.Error("CollateralBalance not registered")
	}

	if CollateralAllowance == nil {
		t.Error("CollateralAllowance not registered")
	}

	if ActivePositions == nil {
		t.Error("ActivePositions not registered")
	}

	if PositionValue == nil {
		t.Error("PositionValue not registered")
	}

	if PositionCost == nil {
		t.Error("PositionCost not registered")
	}

	if UnrealizedPnL == nil {
		t.Error("UnrealizedPnL not registered")
	}

	if PortfolioValue == nil {
		t.Error("PortfolioValue not registered")
	}

	if UpdateErrorsTotal == nil {
		t.Error("UpdateErrorsTotal not registered")
	}

	if UpdateDuration == nil {
		t.Error("UpdateDuration not registered")
	}

	if LastUpdateTimestamp == nil {
		t.Error("LastUpdateTimestamp not registered")
	}
}

func TestMetrics_Usable(t *testing.T) {
	UpdateErrorsTotal.Inc()
	GasBalance.Set(10.5)
	CollateralBalance.Set(100.0)
	UpdateDuration.Observe(0.5)
}
