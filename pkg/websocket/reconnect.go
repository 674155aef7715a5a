package websocket

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig holds the backoff schedule for reconnection attempts.
// A BackoffMultiplier of 1.0 keeps the delay fixed at InitialDelay.
type ReconnectConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = 20%
}

// ReconnectManager retries a connect function until it succeeds or the
// context ends, sleeping per the backoff schedule between attempts.
type ReconnectManager struct {
	config ReconnectConfig
	logger *zap.Logger
	delay  time.Duration
	mu     sync.Mutex
}

// NewReconnectManager creates a reconnection manager.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	return &ReconnectManager{
		config: cfg,
		logger: logger,
		delay:  cfg.InitialDelay,
	}
}

// Reconnect runs connectFunc with backoff until one attempt succeeds.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		wait := rm.advance()

		rm.logger.Info("attempting-reconnection", zap.Duration("backoff", wait))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := connectFunc(ctx)
		if err == nil {
			rm.Reset()
			rm.logger.Info("reconnection-successful")
			return nil
		}

		rm.logger.Warn("reconnection-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
	}
}

// Reset restores the delay to the initial value.
func (rm *ReconnectManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.delay = rm.config.InitialDelay
}

// advance returns the jittered delay for this attempt and grows the base
// delay for the next one, capped at MaxDelay.
func (rm *ReconnectManager) advance() time.Duration {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	jitter := rand.Float64() * rm.config.JitterPercent
	wait := time.Duration(float64(rm.delay) * (1.0 + jitter))

	next := time.Duration(float64(rm.delay) * rm.config.BackoffMultiplier)
	if next > rm.config.MaxDelay {
		next = rm.config.MaxDelay
	}
	if next > 0 {
		rm.delay = next
	}

	return wait
}
