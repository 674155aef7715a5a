package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// strategyFile is the YAML shape of the same-market strategy file.
// Durations are Go duration strings ("5s", "2m"). Absent keys keep their
// env-derived values.
type strategyFile struct {
	TargetPairCost        *float64 `yaml:"target_pair_cost"`
	OrderSize             *float64 `yaml:"order_size"`
	ScanInterval          string   `yaml:"scan_interval"`
	MarketRefresh         string   `yaml:"market_refresh"`
	Tickers               []string `yaml:"tickers"`
	MaxPositionsPerMarket *int     `yaml:"max_positions_per_market"`
	MaxPositionsTotal     *int     `yaml:"max_positions_total"`
	MinTimeRemaining      string   `yaml:"min_time_remaining"`
	Cooldown              string   `yaml:"cooldown"`
}

// loadFile overlays the same-market track settings from a YAML strategy
// file. Only keys present in the file override the env-derived values.
func (b *BTC15MConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var f strategyFile
	err = yaml.Unmarshal(data, &f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if f.TargetPairCost != nil {
		b.TargetPairCost = *f.TargetPairCost
	}
	if f.OrderSize != nil {
		b.OrderSize = *f.OrderSize
	}
	if f.Tickers != nil {
		b.Tickers = f.Tickers
	}
	if f.MaxPositionsPerMarket != nil {
		b.MaxPositionsPerMarket = *f.MaxPositionsPerMarket
	}
	if f.MaxPositionsTotal != nil {
		b.MaxPositionsTotal = *f.MaxPositionsTotal
	}

	err = overlayDuration(&b.ScanInterval, f.ScanInterval, "scan_interval")
	if err != nil {
		return err
	}
	err = overlayDuration(&b.MarketRefresh, f.MarketRefresh, "market_refresh")
	if err != nil {
		return err
	}
	err = overlayDuration(&b.MinTimeRemaining, f.MinTimeRemaining, "min_time_remaining")
	if err != nil {
		return err
	}
	err = overlayDuration(&b.Cooldown, f.Cooldown, "cooldown")
	if err != nil {
		return err
	}

	return nil
}

func overlayDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}

	*dst = d

	return nil
}
