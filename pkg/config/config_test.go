package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.MinProfitCents != 2 {
		t.Errorf("MinProfitCents = %d, want 2", cfg.MinProfitCents)
	}
	if cfg.MinPriceThreshold != 2 {
		t.Errorf("MinPriceThreshold = %d, want 2", cfg.MinPriceThreshold)
	}
	if cfg.MatchingThreshold != 0.7 {
		t.Errorf("MatchingThreshold = %v, want 0.7", cfg.MatchingThreshold)
	}
	if !cfg.DryRun {
		t.Error("DryRun should default to true")
	}
	if cfg.LiquiditySafetyMargin != 0.5 {
		t.Errorf("LiquiditySafetyMargin = %v, want 0.5", cfg.LiquiditySafetyMargin)
	}
	if cfg.MinOrderDollars != 1.10 {
		t.Errorf("MinOrderDollars = %v, want 1.10", cfg.MinOrderDollars)
	}
	if cfg.AlertCooldown != 60*time.Second {
		t.Errorf("AlertCooldown = %v, want 60s", cfg.AlertCooldown)
	}
	if cfg.TradeCooldown != 10*time.Second {
		t.Errorf("TradeCooldown = %v, want 10s", cfg.TradeCooldown)
	}
	if cfg.BTC15M.TargetPairCost != 0.97 {
		t.Errorf("BTC15M.TargetPairCost = %v, want 0.97", cfg.BTC15M.TargetPairCost)
	}
	if cfg.BTC15M.OrderSize != 10 {
		t.Errorf("BTC15M.OrderSize = %v, want 10", cfg.BTC15M.OrderSize)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("StorageMode = %q, want console", cfg.StorageMode)
	}
}

func TestLoadFromEnv_MillisKeys(t *testing.T) {
	// The _MS keys are plain integer milliseconds, not duration strings.
	os.Setenv("SCAN_INTERVAL_MS", "2500")
	os.Setenv("KALSHI_POLL_MS", "1000")
	t.Cleanup(func() {
		os.Unsetenv("SCAN_INTERVAL_MS")
		os.Unsetenv("KALSHI_POLL_MS")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.ScanInterval != 2500*time.Millisecond {
		t.Errorf("ScanInterval = %v, want 2.5s", cfg.ScanInterval)
	}
	if cfg.KalshiPoll != time.Second {
		t.Errorf("KalshiPoll = %v, want 1s", cfg.KalshiPoll)
	}
}

func TestLoadFromEnv_TickerList(t *testing.T) {
	os.Setenv("BTC15M_TICKERS", "btc-updown-15m, eth-updown-15m ,")
	t.Cleanup(func() { os.Unsetenv("BTC15M_TICKERS") })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	want := []string{"btc-updown-15m", "eth-updown-15m"}
	if len(cfg.BTC15M.Tickers) != len(want) {
		t.Fatalf("Tickers = %v, want %v", cfg.BTC15M.Tickers, want)
	}
	for i := range want {
		if cfg.BTC15M.Tickers[i] != want[i] {
			t.Errorf("Tickers[%d] = %q, want %q", i, cfg.BTC15M.Tickers[i], want[i])
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero_min_profit", func(c *Config) { c.MinProfitCents = 0 }},
		{"matching_threshold_above_one", func(c *Config) { c.MatchingThreshold = 1.5 }},
		{"bad_trading_mode", func(c *Config) { c.TradingMode = "AGGRESSIVE" }},
		{"liquidity_margin_zero", func(c *Config) { c.LiquiditySafetyMargin = 0 }},
		{"negative_min_order", func(c *Config) { c.MinOrderDollars = -1 }},
		{"pair_cost_at_one", func(c *Config) { c.BTC15M.TargetPairCost = 1.0 }},
		{"postgres_without_url", func(c *Config) { c.StorageMode = "postgres"; c.DatabaseURL = "" }},
		{"unknown_storage_mode", func(c *Config) { c.StorageMode = "redis" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}

			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestTradeDollars(t *testing.T) {
	cfg := &Config{TradingMode: ModeConservative, TradeAmountCents: 500}
	if got := cfg.TradeDollars(); got != 5.0 {
		t.Errorf("TradeDollars() = %v, want 5.0", got)
	}

	cfg.TradingMode = ModeYolo
	if got := cfg.TradeDollars(); got != YoloTradeDollars {
		t.Errorf("TradeDollars() = %v, want %v", got, YoloTradeDollars)
	}
}

func TestBTC15M_StrategyFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "btc15m.yaml")
	content := []byte(`
target_pair_cost: 0.955
tickers:
  - bitcoin-up-or-down-15m
scan_interval: 2s
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write strategy file: %v", err)
	}

	os.Setenv("BTC15M_STRATEGY_FILE", path)
	t.Cleanup(func() { os.Unsetenv("BTC15M_STRATEGY_FILE") })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.BTC15M.TargetPairCost != 0.955 {
		t.Errorf("TargetPairCost = %v, want 0.955 from file", cfg.BTC15M.TargetPairCost)
	}
	if cfg.BTC15M.ScanInterval != 2*time.Second {
		t.Errorf("ScanInterval = %v, want 2s from file", cfg.BTC15M.ScanInterval)
	}
	// Keys absent from the file keep their defaults.
	if cfg.BTC15M.OrderSize != 10 {
		t.Errorf("OrderSize = %v, want default 10", cfg.BTC15M.OrderSize)
	}
	if len(cfg.BTC15M.Tickers) != 1 || cfg.BTC15M.Tickers[0] != "bitcoin-up-or-down-15m" {
		t.Errorf("Tickers = %v, want single entry from file", cfg.BTC15M.Tickers)
	}
}

func TestBTC15M_StrategyFileBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "btc15m.yaml")
	if err := os.WriteFile(path, []byte("cooldown: soon\n"), 0o600); err != nil {
		t.Fatalf("write strategy file: %v", err)
	}

	os.Setenv("BTC15M_STRATEGY_FILE", path)
	t.Cleanup(func() { os.Unsetenv("BTC15M_STRATEGY_FILE") })

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("LoadFromEnv() = nil error, want parse failure")
	}
}
