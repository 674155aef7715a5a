package execution

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/book"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// VenueTrader is the slice of a venue client the executor needs: order
// placement, the depth probe, and fill verification.
type VenueTrader interface {
	PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error)
	FetchBook(ctx context.Context, tokenID string, side types.Side) (*types.OrderBook, error)
	OrderStatus(ctx context.Context, orderID string) (*types.OrderConfirmation, error)
}

// Alerter is the slice of the alert manager the executor needs.
type Alerter interface {
	TradeExecuted(name string, contracts, netCents int)
	TradeFailed(name, reason string)
	PartialFill(name, detail string)
}

// Leg describes one side of a paired execution.
type Leg struct {
	Venue      types.Venue
	MarketID   string
	TokenID    string
	Side       types.Side
	PriceCents int
}

// Result is the outcome of one Execute call. The shape is identical in
// dry-run and live mode.
type Result struct {
	Success             bool
	DryRun              bool
	Reason              string
	CriticalPartialFill bool
	Contracts           int
	ConfirmationA       *types.OrderConfirmation
	ConfirmationB       *types.OrderConfirmation
	ErrA                error
	ErrB                error
	ElapsedMs           int64
}

// Stats is a snapshot of executor counters.
type Stats struct {
	Attempted        int
	Executed         int
	DryRuns          int
	SkippedMinOrder  int
	SkippedLiquidity int
	PartialFills     int
	Failures         int
}

// Executor places paired orders. One call submits at most two orders;
// there are no retries, and a partial fill is surfaced, never unwound.
type Executor struct {
	dryRun       bool
	minOrder     float64
	safetyMargin float64
	orderTimeout time.Duration
	probeTimeout time.Duration

	traderA VenueTrader
	traderB VenueTrader
	alerter Alerter
	audit   *AuditLog
	fills   *FillTracker
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// Config holds executor configuration.
type Config struct {
	DryRun                bool
	MinOrderDollars       float64
	LiquiditySafetyMargin float64
	OrderTimeout          time.Duration // per leg
	ProbeTimeout          time.Duration
	FillBackoff           time.Duration
	FillTimeout           time.Duration
	AuditSize             int
	TraderA               VenueTrader
	TraderB               VenueTrader
	Alerter               Alerter
	Logger                *zap.Logger
}

// New creates an executor.
func New(cfg Config) *Executor {
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 15 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.LiquiditySafetyMargin <= 0 || cfg.LiquiditySafetyMargin > 1 {
		cfg.LiquiditySafetyMargin = 0.5
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Executor{
		dryRun:       cfg.DryRun,
		minOrder:     cfg.MinOrderDollars,
		safetyMargin: cfg.LiquiditySafetyMargin,
		orderTimeout: cfg.OrderTimeout,
		probeTimeout: cfg.ProbeTimeout,
		traderA:      cfg.TraderA,
		traderB:      cfg.TraderB,
		alerter:      cfg.Alerter,
		audit:        NewAuditLog(cfg.AuditSize),
		fills: NewFillTracker(FillTrackerConfig{
			TraderA:        cfg.TraderA,
			TraderB:        cfg.TraderB,
			InitialBackoff: cfg.FillBackoff,
			FillTimeout:    cfg.FillTimeout,
			Logger:         cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// Audit returns the audit log.
func (e *Executor) Audit() *AuditLog {
	return e.audit
}

// Stats returns a snapshot of the executor counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stats
}

// Execute runs the full pipeline for one opportunity: min-order check,
// best-effort depth probe and downsizing, dry-run gate, then concurrent
// dual-leg placement and reconciliation.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity, legA, legB Leg, contracts int) *Result {
	start := time.Now()

	e.mu.Lock()
	e.stats.Attempted++
	e.mu.Unlock()

	result := e.execute(ctx, opp, legA, legB, contracts)
	result.ElapsedMs = time.Since(start).Milliseconds()

	ExecutionDurationSeconds.Observe(time.Since(start).Seconds())

	return result
}

func (e *Executor) execute(ctx context.Context, opp *arbitrage.Opportunity, legA, legB Leg, contracts int) *Result {
	if contracts <= 0 {
		return &Result{Success: false, Reason: "no contracts requested"}
	}

	// Step 1: minimum order notional, checked per leg.
	if reason, ok := e.checkMinOrder(opp, legA, legB, contracts, AuditSkipMinOrder); !ok {
		return &Result{Success: false, Reason: reason}
	}

	// Step 2: best-effort depth probe. A failed probe never blocks the
	// trade; a thin book shrinks it.
	safe := e.probeAndSize(ctx, opp, legA, legB, contracts)
	if safe == 0 {
		e.recordSkip(AuditSkipLiquidity, opp, map[string]interface{}{
			"requested": contracts,
		})
		e.mu.Lock()
		e.stats.SkippedLiquidity++
		e.mu.Unlock()

		return &Result{Success: false, Reason: "insufficient depth on at least one leg"}
	}

	if safe < contracts {
		e.logger.Info("downsizing-to-safe-depth",
			zap.String("market", opp.Name),
			zap.Int("requested", contracts),
			zap.Int("safe", safe))

		// The smaller order must still clear the notional floor. The root
		// cause here is thin depth, so the skip is a liquidity skip.
		if reason, ok := e.checkMinOrder(opp, legA, legB, safe, AuditSkipLiquidity); !ok {
			return &Result{Success: false, Reason: reason}
		}
	}

	// Step 3: dry-run gate. Same result shape, no orders.
	if e.dryRun {
		e.audit.Record(AuditDryRun, opp.Name, map[string]interface{}{
			"strategy":  string(opp.Strategy),
			"contracts": safe,
			"net_cents": opp.NetProfitCents,
		})
		e.mu.Lock()
		e.stats.DryRuns++
		e.mu.Unlock()

		e.logger.Info("dry-run-would-execute",
			zap.String("market", opp.Name),
			zap.String("strategy", string(opp.Strategy)),
			zap.Int("contracts", safe),
			zap.Int("net-cents", opp.NetProfitCents))

		return &Result{Success: true, DryRun: true, Contracts: safe}
	}

	// Steps 4-5: concurrent placement, then reconcile.
	return e.placeBothLegs(ctx, opp, legA, legB, safe)
}

// checkMinOrder enforces the per-leg notional floor. skipType names the
// root cause on the audit: the raw request or a depth downsizing.
func (e *Executor) checkMinOrder(opp *arbitrage.Opportunity, legA, legB Leg, contracts int, skipType AuditType) (string, bool) {
	for _, leg := range []Leg{legA, legB} {
		notional := types.CentsToDecimal(leg.PriceCents) * float64(contracts)
		if notional < e.minOrder {
			e.recordSkip(skipType, opp, map[string]interface{}{
				"venue":     string(leg.Venue),
				"side":      string(leg.Side),
				"notional":  notional,
				"min_order": e.minOrder,
				"contracts": contracts,
			})
			e.mu.Lock()
			if skipType == AuditSkipLiquidity {
				e.stats.SkippedLiquidity++
			} else {
				e.stats.SkippedMinOrder++
			}
			e.mu.Unlock()

			return fmt.Sprintf("venue %s leg notional $%.2f below minimum $%.2f",
				leg.Venue, notional, e.minOrder), false
		}
	}

	return "", true
}

// probeAndSize returns min(⌊depth·margin⌋, requested) across both legs.
// Probe failures leave the requested size untouched.
func (e *Executor) probeAndSize(ctx context.Context, opp *arbitrage.Opportunity, legA, legB Leg, requested int) int {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	safe := requested
	for _, leg := range []Leg{legA, legB} {
		trader := e.traderFor(leg.Venue)
		if trader == nil {
			continue
		}

		orderBook, err := trader.FetchBook(probeCtx, leg.TokenID, leg.Side)
		if err != nil {
			e.logger.Warn("depth-probe-failed-proceeding",
				zap.String("market", opp.Name),
				zap.String("venue", string(leg.Venue)),
				zap.Error(err))
			continue
		}

		depth := book.Depth(orderBook.Asks)
		legSafe := int(math.Floor(depth * e.safetyMargin))
		if legSafe < safe {
			safe = legSafe
		}
	}

	if safe < 0 {
		safe = 0
	}

	return safe
}

// placeBothLegs submits both orders concurrently with independent
// timeouts and zero retries, then reconciles the outcome.
func (e *Executor) placeBothLegs(ctx context.Context, opp *arbitrage.Opportunity, legA, legB Leg, contracts int) *Result {
	var (
		confA, confB *types.OrderConfirmation
		errA, errB   error
		wg           sync.WaitGroup
	)

	place := func(leg Leg, conf **types.OrderConfirmation, errOut *error) {
		defer wg.Done()

		legCtx, cancel := context.WithTimeout(ctx, e.orderTimeout)
		defer cancel()

		trader := e.traderFor(leg.Venue)
		if trader == nil {
			*errOut = fmt.Errorf("venue %s: %w", leg.Venue, types.ErrNotConfigured)
			return
		}

		*conf, *errOut = trader.PlaceOrder(legCtx, types.OrderRequest{
			Venue:      leg.Venue,
			MarketID:   leg.MarketID,
			TokenID:    leg.TokenID,
			Side:       leg.Side,
			Action:     types.ActionBuy,
			PriceCents: leg.PriceCents,
			Contracts:  contracts,
		})
	}

	wg.Add(2)
	go place(legA, &confA, &errA)
	go place(legB, &confB, &errB)
	wg.Wait()

	result := &Result{
		Contracts:     contracts,
		ConfirmationA: confA,
		ConfirmationB: confB,
		ErrA:          errA,
		ErrB:          errB,
	}

	switch {
	case errA == nil && errB == nil:
		result.Success = true
		e.audit.Record(AuditExecuted, opp.Name, map[string]interface{}{
			"strategy":   string(opp.Strategy),
			"contracts":  contracts,
			"net_cents":  opp.NetProfitCents,
			"order_id_a": confA.OrderID,
			"order_id_b": confB.OrderID,
		})
		TradesTotal.WithLabelValues("executed").Inc()
		ContractsTotal.Add(float64(contracts))

		e.mu.Lock()
		e.stats.Executed++
		e.mu.Unlock()

		if e.alerter != nil {
			e.alerter.TradeExecuted(opp.Name, contracts, opp.NetProfitCents)
		}

		e.logger.Info("both-legs-executed",
			zap.String("market", opp.Name),
			zap.Int("contracts", contracts),
			zap.String("order-id-a", confA.OrderID),
			zap.String("order-id-b", confB.OrderID))

		e.verifyFills(ctx, opp, result)

	case errA == nil || errB == nil:
		// One leg in, one leg dead: the book is exposed. Never auto-close;
		// scream and leave the decision to a human.
		result.CriticalPartialFill = true
		result.Reason = "one leg filled, one leg failed"

		filledVenue, failedErr := legA.Venue, errB
		if errA != nil {
			filledVenue, failedErr = legB.Venue, errA
		}

		e.audit.Record(AuditCriticalPartialFill, opp.Name, map[string]interface{}{
			"strategy":     string(opp.Strategy),
			"contracts":    contracts,
			"filled_venue": string(filledVenue),
			"failed_error": failedErr.Error(),
		})
		TradesTotal.WithLabelValues("partial_fill").Inc()
		PartialFillsTotal.Inc()

		e.mu.Lock()
		e.stats.PartialFills++
		e.mu.Unlock()

		if e.alerter != nil {
			e.alerter.PartialFill(opp.Name,
				fmt.Sprintf("venue %s filled %d contracts, other leg failed: %v",
					filledVenue, contracts, failedErr))
		}

		e.logger.Error("critical-partial-fill",
			zap.String("market", opp.Name),
			zap.String("filled-venue", string(filledVenue)),
			zap.Int("contracts", contracts),
			zap.Error(failedErr))

	default:
		result.Reason = "both legs failed"
		e.audit.Record(AuditBothFailed, opp.Name, map[string]interface{}{
			"strategy": string(opp.Strategy),
			"error_a":  errA.Error(),
			"error_b":  errB.Error(),
		})
		TradesTotal.WithLabelValues("both_failed").Inc()

		e.mu.Lock()
		e.stats.Failures++
		e.mu.Unlock()

		if e.alerter != nil {
			e.alerter.TradeFailed(opp.Name,
				fmt.Sprintf("leg A: %v; leg B: %v", errA, errB))
		}

		e.logger.Error("both-legs-failed",
			zap.String("market", opp.Name),
			zap.NamedError("error-a", errA),
			zap.NamedError("error-b", errB))
	}

	return result
}

// verifyFills reconciles both placed legs against the venues'
// order-status reads. A leg that verifies short downgrades the result's
// contract count so position sizing and trade records carry what
// actually filled.
func (e *Executor) verifyFills(ctx context.Context, opp *arbitrage.Opportunity, result *Result) {
	statuses, err := e.fills.VerifyFills(ctx, result.ConfirmationA, result.ConfirmationB, result.Contracts)
	if err != nil {
		e.logger.Warn("fill-verification-failed",
			zap.String("market", opp.Name),
			zap.Error(err))
		return
	}

	requested := result.Contracts
	verified := requested
	short := false
	for _, s := range statuses {
		if s.FullyFilled {
			continue
		}
		short = true
		if s.Filled < verified {
			verified = s.Filled
		}
	}

	if !short {
		e.logger.Debug("fills-verified",
			zap.String("market", opp.Name),
			zap.Int("contracts", requested))
		return
	}

	if e.alerter != nil {
		e.alerter.PartialFill(opp.Name,
			fmt.Sprintf("verified %d of %d contracts filled", verified, requested))
	}

	e.logger.Warn("fills-verified-short",
		zap.String("market", opp.Name),
		zap.Int("requested", requested),
		zap.Int("verified", verified))

	if verified > 0 {
		result.Contracts = verified
	}
}

// Unwind sells both legs of an open position concurrently. Exits skip
// the sizing pipeline: the held share count is what must go. In dry-run
// mode nothing is placed.
func (e *Executor) Unwind(ctx context.Context, name string, legA, legB Leg, contracts int) *Result {
	if contracts <= 0 {
		return &Result{Success: false, Reason: "no contracts to unwind"}
	}

	if e.dryRun {
		e.logger.Info("dry-run-would-unwind",
			zap.String("market", name),
			zap.Int("contracts", contracts))

		return &Result{Success: true, DryRun: true, Contracts: contracts}
	}

	var (
		confA, confB *types.OrderConfirmation
		errA, errB   error
		wg           sync.WaitGroup
	)

	sell := func(leg Leg, conf **types.OrderConfirmation, errOut *error) {
		defer wg.Done()

		legCtx, cancel := context.WithTimeout(ctx, e.orderTimeout)
		defer cancel()

		trader := e.traderFor(leg.Venue)
		if trader == nil {
			*errOut = fmt.Errorf("venue %s: %w", leg.Venue, types.ErrNotConfigured)
			return
		}

		*conf, *errOut = trader.PlaceOrder(legCtx, types.OrderRequest{
			Venue:      leg.Venue,
			MarketID:   leg.MarketID,
			TokenID:    leg.TokenID,
			Side:       leg.Side,
			Action:     types.ActionSell,
			PriceCents: leg.PriceCents,
			Contracts:  contracts,
		})
	}

	wg.Add(2)
	go sell(legA, &confA, &errA)
	go sell(legB, &confB, &errB)
	wg.Wait()

	result := &Result{
		Contracts:     contracts,
		ConfirmationA: confA,
		ConfirmationB: confB,
		ErrA:          errA,
		ErrB:          errB,
		Success:       errA == nil && errB == nil,
	}

	if !result.Success {
		result.Reason = "exit leg failed"
		TradesTotal.WithLabelValues("exit_failed").Inc()

		e.logger.Error("position-exit-failed",
			zap.String("market", name),
			zap.NamedError("error-a", errA),
			zap.NamedError("error-b", errB))

		return result
	}

	TradesTotal.WithLabelValues("exited").Inc()

	e.logger.Info("position-exited",
		zap.String("market", name),
		zap.Int("contracts", contracts))

	return result
}

func (e *Executor) traderFor(v types.Venue) VenueTrader {
	if v == types.VenueB {
		return e.traderB
	}

	return e.traderA
}

func (e *Executor) recordSkip(t AuditType, opp *arbitrage.Opportunity, details map[string]interface{}) {
	e.audit.Record(t, opp.Name, details)
	SkipsTotal.WithLabelValues(string(t)).Inc()

	e.logger.Info("execution-skipped",
		zap.String("market", opp.Name),
		zap.String("reason", string(t)))
}
