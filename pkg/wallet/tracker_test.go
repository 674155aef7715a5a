package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid_config",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: false,
		},
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil_logger",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 1 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "empty_rpc_endpoint",
			cfg: &Config{
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "zero_poll_interval",
			cfg: &Config{
				RPCEndpoint: "https://polygon-rpc.com",
				Address:     address,
				Logger:      logger,
			},
			wantErr: true,
		},
		{
			name: "negative_poll_interval",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: -1 * time.Second,
				Logger:       logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if tracker == nil {
				t.Fatal("New() returned nil tracker")
			}
			if tracker.client == nil {
				t.Error("New() client is nil")
			}
			if tracker.address != tt.cfg.Address {
				t.Errorf("New() address = %v, want %v", tracker.address, tt.cfg.Address)
			}
			if tracker.pollInterval != tt.cfg.PollInterval {
				t.Errorf("New() pollInterval = %v, want %v", tracker.pollInterval, tt.cfg.PollInterval)
			}
		})
	}
}

func TestTracker_Run_ImmediateCancellation(t *testing.T) {
	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: 1 * time.Minute,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not exit after context cancellation")
	}
}

func testTracker(t *testing.T) *Tracker {
	t.Helper()

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: 1 * time.Minute,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	return tracker
}

func TestTracker_updateMetrics(t *testing.T) {
	tracker := testTracker(t)

	tracker.updateMetrics(&Balances{
		Gas:                 big.NewInt(5e18),
		Collateral:          big.NewInt(100e6),
		CollateralAllowance: big.NewInt(1000e6),
	}, []Position{
		{MarketSlug: "market-1", Outcome: "YES", Size: 100, Value: 52.00, InitialValue: 50.00, CashPnL: 2.00},
		{MarketSlug: "market-2", Outcome: "NO", Size: 50, Value: 26.00, InitialValue: 24.00, CashPnL: 2.00},
	})

	if got := testutil.ToFloat64(GasBalance); got != 5.0 {
		t.Errorf("GasBalance = %f, want 5.0", got)
	}
	if got := testutil.ToFloat64(CollateralBalance); got != 100.0 {
		t.Errorf("CollateralBalance = %f, want 100.0", got)
	}
	if got := testutil.ToFloat64(CollateralAllowance); got != 1000.0 {
		t.Errorf("CollateralAllowance = %f, want 1000.0", got)
	}
	if got := testutil.ToFloat64(ActivePositions); got != 2 {
		t.Errorf("ActivePositions = %f, want 2", got)
	}
	if got := testutil.ToFloat64(PositionValue); got != 78.0 {
		t.Errorf("PositionValue = %f, want 78.0", got)
	}
	if got := testutil.ToFloat64(PositionCost); got != 74.0 {
		t.Errorf("PositionCost = %f, want 74.0", got)
	}
	if got := testutil.ToFloat64(UnrealizedPnL); got != 4.0 {
		t.Errorf("UnrealizedPnL = %f, want 4.0", got)
	}
	if got := testutil.ToFloat64(PortfolioValue); got != 178.0 {
		t.Errorf("PortfolioValue = %f, want 178.0", got)
	}
}

func TestTracker_updateMetrics_EmptyWallet(t *testing.T) {
	tracker := testTracker(t)

	tracker.updateMetrics(&Balances{
		Gas:                 big.NewInt(0),
		Collateral:          big.NewInt(0),
		CollateralAllowance: big.NewInt(0),
	}, nil)

	if got := testutil.ToFloat64(ActivePositions); got != 0 {
		t.Errorf("ActivePositions = %f, want 0", got)
	}
	if got := testutil.ToFloat64(PortfolioValue); got != 0 {
		t.Errorf("PortfolioValue = %f, want 0", got)
	}
}

func TestTracker_updateMetrics_NegativePnL(t *testing.T) {
	tracker := testTracker(t)

	tracker.updateMetrics(&Balances{
		Gas:                 big.NewInt(1e18),
		Collateral:          big.NewInt(100e6),
		CollateralAllowance: big.NewInt(1000e6),
	}, []Position{
		{MarketSlug: "losing-market", Outcome: "YES", Size: 100, Value: 40.00, InitialValue: 50.00, CashPnL: -10.00},
	})

	if got := testutil.ToFloat64(UnrealizedPnL); got != -10.0 {
		t.Errorf("UnrealizedPnL = %f, want -10.0", got)
	}
}
