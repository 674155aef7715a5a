package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BalanceFetcher reads the venue B portfolio balance in dollars. The
// venue client satisfies this directly.
type BalanceFetcher interface {
	Balance(ctx context.Context) (float64, error)
}

// Alerter receives trip and reset notifications.
type Alerter interface {
	CircuitBreakerTripped(balance, threshold float64)
	CircuitBreakerReset(balance float64)
}

// defaultHysteresisRatio re-enables trading only after the balance
// recovers to 120% of the floor, so a balance oscillating around the
// threshold doesn't flap the breaker.
const defaultHysteresisRatio = 1.2

// BalanceBreaker halts trading when the venue B balance drops below a
// configured floor. Every dual-leg trade spends from that balance, so a
// floor breach means the next trade could strand one leg unfunded.
type BalanceBreaker struct {
	enabled atomic.Bool

	checkInterval   time.Duration
	minBalance      float64
	hysteresisRatio float64
	fetcher         BalanceFetcher
	alerter         Alerter
	logger          *zap.Logger

	mu          sync.RWMutex
	lastBalance float64
	lastCheck   time.Time
	trips       int
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	MinBalance      float64
	HysteresisRatio float64
	Fetcher         BalanceFetcher
	Alerter         Alerter
	Logger          *zap.Logger
}

// Status is a point-in-time view for the HTTP status surface.
type Status struct {
	Enabled        bool
	LastBalance    float64
	LastCheck      time.Time
	MinBalance     float64
	ResetThreshold float64
	Trips          int
}

// New creates a balance breaker. It starts enabled; the first balance
// check settles the real state.
func New(cfg Config) (*BalanceBreaker, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("balance fetcher cannot be nil")
	}
	if cfg.MinBalance <= 0 {
		return nil, fmt.Errorf("minimum balance must be positive")
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.HysteresisRatio <= 1.0 {
		cfg.HysteresisRatio = defaultHysteresisRatio
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	b := &BalanceBreaker{
		checkInterval:   cfg.CheckInterval,
		minBalance:      cfg.MinBalance,
		hysteresisRatio: cfg.HysteresisRatio,
		fetcher:         cfg.Fetcher,
		alerter:         cfg.Alerter,
		logger:          cfg.Logger,
	}
	b.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerThreshold.Set(cfg.MinBalance)

	return b, nil
}

// IsEnabled reports whether trades may execute. Lock-free, safe on the
// hot path.
func (b *BalanceBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// resetThreshold is the balance at which a tripped breaker re-enables.
func (b *BalanceBreaker) resetThreshold() float64 {
	return b.minBalance * b.hysteresisRatio
}

// CheckBalance fetches the balance once and applies the trip/reset
// transition.
func (b *BalanceBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		CheckDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	balance, err := b.fetcher.Balance(ctx)
	if err != nil {
		b.logger.Error("balance-check-failed", zap.Error(err))
		return fmt.Errorf("fetch balance: %w", err)
	}

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	b.mu.Unlock()

	BreakerBalance.Set(balance)

	enabled := b.enabled.Load()

	switch {
	case enabled && balance < b.minBalance:
		b.trip(balance)
	case !enabled && balance >= b.resetThreshold():
		b.reset(balance)
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", enabled))
	}

	return nil
}

func (b *BalanceBreaker) trip(balance float64) {
	b.enabled.Store(false)
	BreakerEnabled.Set(0)
	StateChangesTotal.Inc()

	b.mu.Lock()
	b.trips++
	b.mu.Unlock()

	b.logger.Warn("circuit-breaker-tripped",
		zap.Float64("balance", balance),
		zap.Float64("min-balance", b.minBalance),
		zap.Float64("reset-threshold", b.resetThreshold()))

	if b.alerter != nil {
		b.alerter.CircuitBreakerTripped(balance, b.minBalance)
	}
}

func (b *BalanceBreaker) reset(balance float64) {
	b.enabled.Store(true)
	BreakerEnabled.Set(1)
	StateChangesTotal.Inc()

	b.logger.Info("circuit-breaker-reset",
		zap.Float64("balance", balance),
		zap.Float64("reset-threshold", b.resetThreshold()))

	if b.alerter != nil {
		b.alerter.CircuitBreakerReset(balance)
	}
}

// Start checks once immediately, then monitors in the background until
// the context is cancelled.
func (b *BalanceBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("min-balance", b.minBalance),
		zap.Float64("hysteresis-ratio", b.hysteresisRatio))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			// Errors keep the previous state: a flaky balance endpoint
			// must not halt trading by itself.
			_ = b.CheckBalance(ctx)
		}
	}
}

// GetStatus returns a snapshot for the status endpoint.
func (b *BalanceBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:        b.enabled.Load(),
		LastBalance:    b.lastBalance,
		LastCheck:      b.lastCheck,
		MinBalance:     b.minBalance,
		ResetThreshold: b.resetThreshold(),
		Trips:          b.trips,
	}
}
