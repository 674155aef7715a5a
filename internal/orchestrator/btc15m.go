package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/storage"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// SameMarketTrack runs the single-venue both-sides strategy on venue A
// short-window markets (the 15-minute crypto settlement series). It keeps
// its own market set and scan cadence; positions share the orchestrator
// ledger under the same-market caps.
type SameMarketTrack struct {
	Evaluator             *arbitrage.Evaluator
	Tickers               []string
	OrderSize             int
	ScanInterval          time.Duration
	MarketRefresh         time.Duration
	MaxPositionsPerMarket int
	MaxPositionsTotal     int
	MinTimeRemaining      time.Duration
	Cooldown              time.Duration

	svc    *Service
	logger *zap.Logger

	mu        sync.RWMutex
	markets   map[string]types.Outcome // keyed by market ID
	lastTrade map[string]time.Time
}

// start wires the track to its parent service and launches its loops.
func (t *SameMarketTrack) start(s *Service) {
	if t.ScanInterval <= 0 {
		t.ScanInterval = 5 * time.Second
	}
	if t.MarketRefresh <= 0 {
		t.MarketRefresh = time.Minute
	}
	if t.Cooldown <= 0 {
		t.Cooldown = 10 * time.Second
	}
	if t.OrderSize <= 0 {
		t.OrderSize = 10
	}

	t.svc = s
	t.logger = s.logger.Named("same-market")
	t.markets = make(map[string]types.Outcome)
	t.lastTrade = make(map[string]time.Time)

	if len(t.Tickers) == 0 || t.Evaluator == nil {
		t.logger.Info("same-market-track-disabled")
		return
	}

	t.logger.Info("same-market-track-starting",
		zap.Strings("tickers", t.Tickers),
		zap.Int("order-size", t.OrderSize),
		zap.Duration("scan-interval", t.ScanInterval))

	s.wg.Add(2)
	go t.refreshLoop()
	go t.scanLoop()
}

func (t *SameMarketTrack) refreshLoop() {
	defer t.svc.wg.Done()

	if err := t.refresh(t.svc.ctx); err != nil {
		t.logger.Warn("same-market-refresh-failed", zap.Error(err))
	}

	ticker := time.NewTicker(t.MarketRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-t.svc.ctx.Done():
			return
		case <-ticker.C:
			if err := t.refresh(t.svc.ctx); err != nil {
				t.logger.Warn("same-market-refresh-failed", zap.Error(err))
			}
		}
	}
}

// refresh rebuilds the tracked market set from the venue A catalog and
// clears positions on expired windows.
func (t *SameMarketTrack) refresh(ctx context.Context) error {
	outcomes, err := t.svc.cfg.VenueA.ActiveOutcomes(ctx, t.svc.cfg.MarketLimit)
	if err != nil {
		return err
	}

	now := time.Now()
	fresh := make(map[string]types.Outcome)
	for _, o := range outcomes {
		if !matchesAnyTicker(o, t.Tickers) || expired(o, now) {
			continue
		}
		fresh[o.MarketID] = o
	}

	t.mu.Lock()
	var droppedMarkets []string
	for id := range t.markets {
		if _, ok := fresh[id]; !ok {
			droppedMarkets = append(droppedMarkets, id)
		}
	}
	t.markets = fresh
	t.mu.Unlock()

	for _, id := range droppedMarkets {
		if cleared := t.svc.ledger.CloseMarket(id); len(cleared) > 0 {
			// Expired windows settle on the venue; the positions pay out
			// whatever the resolution gives both sides.
			t.logger.Info("expired-market-positions-cleared",
				zap.String("market-id", id),
				zap.Int("positions", len(cleared)))
		}
	}

	t.logger.Debug("same-market-set-refreshed", zap.Int("markets", len(fresh)))

	return nil
}

func (t *SameMarketTrack) scanLoop() {
	defer t.svc.wg.Done()

	ticker := time.NewTicker(t.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.svc.ctx.Done():
			return
		case <-ticker.C:
			t.scan(t.svc.ctx)
		}
	}
}

// scan walks each tracked market's two ask ladders and executes when the
// pair cost clears the target.
func (t *SameMarketTrack) scan(ctx context.Context) {
	t.mu.RLock()
	outcomes := make([]types.Outcome, 0, len(t.markets))
	for _, o := range t.markets {
		outcomes = append(outcomes, o)
	}
	t.mu.RUnlock()

	now := time.Now()

	for _, outcome := range outcomes {
		if t.inCooldown(outcome.MarketID, now) {
			SkipsTotal.WithLabelValues("cooldown").Inc()
			continue
		}
		if t.belowMinTimeRemaining(outcome, now) {
			SkipsTotal.WithLabelValues("window_closing").Inc()
			continue
		}
		if t.svc.ledger.SameMarketCount(outcome.MarketID) >= t.MaxPositionsPerMarket {
			SkipsTotal.WithLabelValues("market_cap").Inc()
			continue
		}

		yesBook, err := t.svc.cfg.VenueA.FetchBook(ctx, outcome.YesID)
		if err != nil {
			t.logger.Debug("yes-book-fetch-failed",
				zap.String("market", outcome.Title), zap.Error(err))
			continue
		}
		noBook, err := t.svc.cfg.VenueA.FetchBook(ctx, outcome.NoID)
		if err != nil {
			t.logger.Debug("no-book-fetch-failed",
				zap.String("market", outcome.Title), zap.Error(err))
			continue
		}

		opp := t.Evaluator.EvaluateSameMarket(outcome, yesBook.Asks, noBook.Asks)
		if opp == nil {
			continue
		}

		t.svc.remember(opp)
		t.execute(ctx, opp, outcome, now)
	}
}

func (t *SameMarketTrack) execute(ctx context.Context, opp *arbitrage.Opportunity, outcome types.Outcome, now time.Time) {
	if t.svc.cfg.Gate != nil && !t.svc.cfg.Gate.IsEnabled() {
		SkipsTotal.WithLabelValues("circuit_breaker").Inc()
		return
	}

	// Both legs land on venue A: YES and NO tokens of the same binary.
	legA := execution.Leg{
		Venue:      types.VenueA,
		MarketID:   outcome.MarketID,
		TokenID:    outcome.YesID,
		Side:       types.SideYes,
		PriceCents: opp.PriceACents,
	}
	legB := execution.Leg{
		Venue:      types.VenueA,
		MarketID:   outcome.MarketID,
		TokenID:    outcome.NoID,
		Side:       types.SideNo,
		PriceCents: opp.PriceBCents,
	}

	result := t.svc.cfg.Executor.Execute(ctx, opp, legA, legB, t.OrderSize)
	if !result.Success {
		return
	}

	t.setCooldown(outcome.MarketID, now)

	if result.DryRun {
		return
	}

	position := &Position{
		ID:               uuid.New().String(),
		Opportunity:      opp,
		SharesA:          result.Contracts,
		SharesB:          result.Contracts,
		OutcomeIDA:       outcome.YesID,
		OutcomeIDB:       outcome.NoID,
		EntryPriceACents: opp.PriceACents,
		EntryPriceBCents: opp.PriceBCents,
		EntryTime:        now,
		ExpectedNetCents: opp.NetProfitCents,
	}

	if err := t.svc.ledger.OpenSameMarket(outcome.MarketID, position); err != nil {
		t.logger.Warn("same-market-position-rejected", zap.Error(err))
		return
	}

	t.recordEntry(ctx, opp, outcome, result.Contracts, now)
}

func (t *SameMarketTrack) recordEntry(ctx context.Context, opp *arbitrage.Opportunity, outcome types.Outcome, contracts int, now time.Time) {
	if t.svc.cfg.Storage == nil {
		return
	}

	record := &storage.TradeRecord{
		ID:               uuid.New().String(),
		Name:             opp.Name,
		Type:             storage.TradeEntry,
		Strategy:         string(opp.Strategy),
		SideA:            string(types.SideYes),
		SideB:            string(types.SideNo),
		PriceACents:      opp.PriceACents,
		PriceBCents:      opp.PriceBCents,
		Contracts:        contracts,
		TotalCost:        decimal.New(int64(opp.TotalCostCents*contracts), -2),
		GrossSpreadCents: opp.GrossSpreadCents,
		Fees:             decimal.New(int64(opp.FeesCents*contracts), -2),
		ExpectedNet:      decimal.New(int64(opp.NetProfitCents*contracts), -2),
		ExpiresAt:        outcome.CloseTime,
		EntryTime:        now,
		CreatedAt:        now,
	}

	if err := t.svc.cfg.Storage.RecordTrade(ctx, record); err != nil {
		t.logger.Warn("trade-record-failed", zap.Error(err))
	}
}

func (t *SameMarketTrack) belowMinTimeRemaining(o types.Outcome, now time.Time) bool {
	if t.MinTimeRemaining <= 0 || o.CloseTime.IsZero() {
		return false
	}

	return o.CloseTime.Sub(now) < t.MinTimeRemaining
}

func (t *SameMarketTrack) inCooldown(marketID string, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	last, ok := t.lastTrade[marketID]

	return ok && now.Sub(last) < t.Cooldown
}

func (t *SameMarketTrack) setCooldown(marketID string, now time.Time) {
	t.mu.Lock()
	t.lastTrade[marketID] = now
	t.mu.Unlock()
}
