package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// FillStatus is the verified state of one placed leg.
type FillStatus struct {
	Venue       types.Venue
	OrderID     string
	Status      string
	Expected    int
	Filled      int
	FullyFilled bool
	VerifiedAt  time.Time
	Err         error
}

// FillTracker verifies placed legs against both venues' order-status
// reads with exponential backoff. Best-effort: a verification timeout is
// reported, never retried past the deadline.
type FillTracker struct {
	traderA        VenueTrader
	traderB        VenueTrader
	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffMult    float64
	fillTimeout    time.Duration
	logger         *zap.Logger
}

// FillTrackerConfig holds fill verification configuration.
type FillTrackerConfig struct {
	TraderA        VenueTrader
	TraderB        VenueTrader
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	FillTimeout    time.Duration
	Logger         *zap.Logger
}

// NewFillTracker creates a fill tracker.
func NewFillTracker(cfg FillTrackerConfig) *FillTracker {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}
	if cfg.BackoffMult <= 1 {
		cfg.BackoffMult = 2
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &FillTracker{
		traderA:        cfg.TraderA,
		traderB:        cfg.TraderB,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		backoffMult:    cfg.BackoffMult,
		fillTimeout:    cfg.FillTimeout,
		logger:         cfg.Logger,
	}
}

// VerifyFills polls both legs until each reports expected contracts
// filled, the timeout elapses, or the context is cancelled. Unverified
// legs carry an Err; the slice is always returned.
func (ft *FillTracker) VerifyFills(ctx context.Context, confA, confB *types.OrderConfirmation, expected int) ([]FillStatus, error) {
	statuses := make([]FillStatus, 0, 2)
	if confA != nil {
		statuses = append(statuses, FillStatus{Venue: confA.Venue, OrderID: confA.OrderID, Expected: expected})
	}
	if confB != nil {
		statuses = append(statuses, FillStatus{Venue: confB.Venue, OrderID: confB.OrderID, Expected: expected})
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("no confirmations to verify")
	}

	start := time.Now()
	timeout := time.NewTimer(ft.fillTimeout)
	defer timeout.Stop()

	backoff := ft.initialBackoff
	attempt := 1

	for {
		allFilled := true
		for i := range statuses {
			if statuses[i].FullyFilled {
				continue
			}

			trader := ft.traderFor(statuses[i].Venue)
			if trader == nil {
				statuses[i].Err = types.ErrNotConfigured
				continue
			}

			conf, err := trader.OrderStatus(ctx, statuses[i].OrderID)
			if err != nil {
				// Transient: retry on the next attempt.
				ft.logger.Warn("fill-status-query-failed",
					zap.String("order-id", statuses[i].OrderID),
					zap.Int("attempt", attempt),
					zap.Error(err))
				allFilled = false
				continue
			}

			statuses[i].Status = conf.Status
			statuses[i].Filled = conf.Filled
			statuses[i].VerifiedAt = time.Now()

			if conf.Filled >= expected {
				statuses[i].FullyFilled = true
				statuses[i].Err = nil
				ft.logger.Info("leg-fully-filled",
					zap.String("order-id", statuses[i].OrderID),
					zap.String("venue", string(statuses[i].Venue)),
					zap.Int("filled", conf.Filled),
					zap.Duration("elapsed", time.Since(start)))
			} else {
				allFilled = false
			}
		}

		if allFilled {
			FillVerificationsTotal.WithLabelValues("filled").Inc()
			return statuses, nil
		}

		select {
		case <-timeout.C:
			FillVerificationsTotal.WithLabelValues("timeout").Inc()
			for i := range statuses {
				if !statuses[i].FullyFilled {
					statuses[i].Err = fmt.Errorf("fill verification timeout after %s", ft.fillTimeout)
				}
			}
			ft.logger.Warn("fill-verification-timeout",
				zap.Duration("timeout", ft.fillTimeout),
				zap.Int("attempts", attempt))
			return statuses, nil

		case <-ctx.Done():
			FillVerificationsTotal.WithLabelValues("cancelled").Inc()
			return statuses, ctx.Err()

		case <-time.After(backoff):
			attempt++
			backoff = time.Duration(float64(backoff) * ft.backoffMult)
			if backoff > ft.maxBackoff {
				backoff = ft.maxBackoff
			}
		}
	}
}

func (ft *FillTracker) traderFor(v types.Venue) VenueTrader {
	if v == types.VenueB {
		return ft.traderB
	}

	return ft.traderA
}
