package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/feed"
	"github.com/mselser95/crossmarket-arb/internal/matching"
	"github.com/mselser95/crossmarket-arb/internal/storage"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// VenueACatalog is the venue A surface the orchestrator consumes:
// catalog reads and book fetches.
type VenueACatalog interface {
	ActiveOutcomes(ctx context.Context, limit int) ([]types.Outcome, error)
	ClosedOutcomes(ctx context.Context, limit int) ([]types.Outcome, error)
	FetchBook(ctx context.Context, tokenID string) (*types.OrderBook, error)
}

// VenueBCatalog is the venue B market data surface.
type VenueBCatalog interface {
	FetchOpenMarkets(ctx context.Context, limit int) ([]types.Outcome, error)
}

// Executor places and unwinds paired orders.
type Executor interface {
	Execute(ctx context.Context, opp *arbitrage.Opportunity, legA, legB execution.Leg, contracts int) *execution.Result
	Unwind(ctx context.Context, name string, legA, legB execution.Leg, contracts int) *execution.Result
}

// Alerter is the slice of the alert manager the orchestrator uses.
type Alerter interface {
	BigOpportunity(name string, netCents int)
	DailySummary(trades, wins, losses int, netPnlDollars float64)
	Critical(alertType, message string)
}

// Gate decides whether trades may execute. The circuit breaker satisfies
// this.
type Gate interface {
	IsEnabled() bool
}

// Subscriber manages venue A stream subscriptions. The WebSocket pool
// satisfies this.
type Subscriber interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
	Unsubscribe(ctx context.Context, tokenIDs []string) error
}

// winnerFloorCents is the minimum price at which a side of a closed
// market counts as the obvious winner for the settlement lag watch.
const winnerFloorCents = 90

// recentOpportunityCap bounds the opportunity list served over HTTP.
const recentOpportunityCap = 50

// Config holds orchestrator configuration.
type Config struct {
	VenueA     VenueACatalog
	VenueB     VenueBCatalog
	Matcher    *matching.Matcher
	Evaluator  *arbitrage.Evaluator
	Executor   Executor
	Alerter    Alerter
	Storage    storage.Storage
	Gate       Gate
	Quotes     *feed.Cache
	Subscriber Subscriber

	MarketRefresh   time.Duration
	ScanInterval    time.Duration
	KalshiPoll      time.Duration
	ResolutionCheck time.Duration
	TradeCooldown   time.Duration

	MarketLimit         int
	MinProfitCents      int
	AlertThresholdCents int
	TradeDollars        float64

	BTC15M *SameMarketTrack

	Logger *zap.Logger
}

// Service drives the engine: discovery refresh, price ingest, the scan
// loop, position management, and the resolution watcher.
type Service struct {
	cfg    Config
	logger *zap.Logger
	ledger *Ledger
	cron   *cron.Cron

	mu         sync.RWMutex
	pairs      map[string]types.MatchedPair // keyed by MatchedPair.Key()
	subscribed map[string]bool              // venue A token IDs on the stream
	lastTrade  map[string]time.Time         // per-market cooldown clocks
	recent     []*arbitrage.Opportunity

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the orchestrator service.
func New(cfg Config) *Service {
	if cfg.MarketRefresh <= 0 {
		cfg.MarketRefresh = time.Minute
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Second
	}
	if cfg.KalshiPoll <= 0 {
		cfg.KalshiPoll = 5 * time.Second
	}
	if cfg.ResolutionCheck <= 0 {
		cfg.ResolutionCheck = 5 * time.Minute
	}
	if cfg.TradeCooldown <= 0 {
		cfg.TradeCooldown = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	perMarket, global := 1, 0
	if cfg.BTC15M != nil {
		perMarket = cfg.BTC15M.MaxPositionsPerMarket
		global = cfg.BTC15M.MaxPositionsTotal
	}

	return &Service{
		cfg:        cfg,
		logger:     cfg.Logger,
		ledger:     NewLedger(perMarket, global),
		pairs:      make(map[string]types.MatchedPair),
		subscribed: make(map[string]bool),
		lastTrade:  make(map[string]time.Time),
	}
}

// Ledger exposes the position ledger for the HTTP surface.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Start runs the initial discovery synchronously, then launches the
// background loops.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("orchestrator-starting",
		zap.Duration("market-refresh", s.cfg.MarketRefresh),
		zap.Duration("scan-interval", s.cfg.ScanInterval),
		zap.Duration("venue-b-poll", s.cfg.KalshiPoll))

	if err := s.refreshMarkets(s.ctx); err != nil {
		// Non-fatal: the refresh loop retries.
		s.logger.Warn("initial-discovery-failed", zap.Error(err))
	}

	s.wg.Add(4)
	go s.refreshLoop()
	go s.pollLoop()
	go s.scanLoop()
	go s.resolutionLoop()

	if s.cfg.BTC15M != nil {
		s.cfg.BTC15M.start(s)
	}

	s.startCron()

	return nil
}

// Close stops every loop and waits for them.
func (s *Service) Close() error {
	s.logger.Info("orchestrator-stopping")

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()

	s.logger.Info("orchestrator-stopped")

	return nil
}

// startCron schedules the daily summary just after midnight UTC.
func (s *Service) startCron() {
	s.cron = cron.New(cron.WithLocation(time.UTC))

	_, err := s.cron.AddFunc("1 0 * * *", s.emitDailySummary)
	if err != nil {
		s.logger.Error("cron-schedule-failed", zap.Error(err))
		return
	}

	s.cron.Start()
}

// emitDailySummary reads yesterday's ledger stats and alerts them.
func (s *Service) emitDailySummary() {
	if s.cfg.Storage == nil || s.cfg.Alerter == nil {
		return
	}

	day := storage.Day(time.Now().UTC().AddDate(0, 0, -1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := s.cfg.Storage.DailyStats(ctx, day)
	if err != nil {
		s.logger.Warn("daily-summary-read-failed", zap.Error(err))
		return
	}

	net, _ := stats.NetPnl.Float64()
	s.cfg.Alerter.DailySummary(stats.Trades, stats.Wins, stats.Losses, net)
}

// refreshLoop re-discovers markets on the configured interval.
func (s *Service) refreshLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.MarketRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.refreshMarkets(s.ctx); err != nil {
				s.logger.Warn("market-refresh-failed", zap.Error(err))
			}
		}
	}
}

// refreshMarkets fetches both catalogs, re-matches, and reconciles
// stream subscriptions with the new pair set.
func (s *Service) refreshMarkets(ctx context.Context) error {
	aOutcomes, err := s.cfg.VenueA.ActiveOutcomes(ctx, s.cfg.MarketLimit)
	if err != nil {
		RefreshesTotal.WithLabelValues("error").Inc()
		return err
	}

	bOutcomes, err := s.cfg.VenueB.FetchOpenMarkets(ctx, s.cfg.MarketLimit)
	if err != nil {
		RefreshesTotal.WithLabelValues("error").Inc()
		return err
	}

	now := time.Now()
	pairs := s.cfg.Matcher.Match(aOutcomes, bOutcomes)

	fresh := make(map[string]types.MatchedPair, len(pairs))
	wantTokens := make(map[string]bool)
	for _, pair := range pairs {
		if expired(pair.A, now) || expired(pair.B, now) {
			continue
		}
		fresh[pair.Key()] = pair
		wantTokens[pair.A.YesID] = true
		wantTokens[pair.A.NoID] = true
	}

	s.mu.Lock()
	dropped := make([]string, 0)
	for token := range s.subscribed {
		if !wantTokens[token] {
			dropped = append(dropped, token)
			delete(s.subscribed, token)
		}
	}
	added := make([]string, 0)
	for token := range wantTokens {
		if !s.subscribed[token] {
			added = append(added, token)
			s.subscribed[token] = true
		}
	}
	s.pairs = fresh
	s.mu.Unlock()

	PairsTracked.Set(float64(len(fresh)))
	RefreshesTotal.WithLabelValues("ok").Inc()

	if s.cfg.Quotes != nil {
		for _, token := range dropped {
			s.cfg.Quotes.Forget(types.VenueA, token)
		}
	}

	if s.cfg.Subscriber != nil {
		if len(added) > 0 {
			if err := s.cfg.Subscriber.Subscribe(ctx, added); err != nil {
				s.logger.Warn("stream-subscribe-failed", zap.Error(err))
			}
		}
		if len(dropped) > 0 {
			if err := s.cfg.Subscriber.Unsubscribe(ctx, dropped); err != nil {
				s.logger.Warn("stream-unsubscribe-failed", zap.Error(err))
			}
		}
	}

	s.logger.Info("markets-refreshed",
		zap.Int("venue-a-markets", len(aOutcomes)),
		zap.Int("venue-b-markets", len(bOutcomes)),
		zap.Int("matched-pairs", len(fresh)),
		zap.Int("tokens-added", len(added)),
		zap.Int("tokens-dropped", len(dropped)))

	return nil
}

// pollLoop refreshes venue B prices on the poll interval and writes them
// through the quote cache.
func (s *Service) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.KalshiPoll)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollVenueB(s.ctx)
		}
	}
}

// pollVenueB merges fresh venue B quotes into the tracked pairs.
func (s *Service) pollVenueB(ctx context.Context) {
	outcomes, err := s.cfg.VenueB.FetchOpenMarkets(ctx, s.cfg.MarketLimit)
	if err != nil {
		PollFailuresTotal.Inc()
		s.logger.Warn("venue-b-poll-failed", zap.Error(err))
		return
	}

	byTicker := make(map[string]types.Outcome, len(outcomes))
	for _, o := range outcomes {
		byTicker[o.MarketID] = o
	}

	s.mu.Lock()
	updated := 0
	for key, pair := range s.pairs {
		fresh, ok := byTicker[pair.B.MarketID]
		if !ok {
			continue
		}
		pair.B.YesPriceCents = fresh.YesPriceCents
		pair.B.NoPriceCents = fresh.NoPriceCents
		s.pairs[key] = pair
		updated++
	}
	s.mu.Unlock()

	if s.cfg.Quotes != nil {
		for _, o := range outcomes {
			// One snapshot per ticker: ask(YES) on the ask side and the
			// implied bid(YES) = 1 − ask(NO), so both sides reconstruct.
			s.cfg.Quotes.SetQuote(types.QuoteSnapshot{
				Venue:        types.VenueB,
				MarketID:     o.MarketID,
				TokenID:      o.MarketID,
				BestAskPrice: types.CentsToDecimal(o.YesPriceCents),
				BestBidPrice: 1 - types.CentsToDecimal(o.NoPriceCents),
			})
		}
	}

	s.logger.Debug("venue-b-polled",
		zap.Int("markets", len(outcomes)),
		zap.Int("pairs-updated", updated))
}

// scanLoop runs the evaluation pass on the scan interval.
func (s *Service) scanLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.scan(s.ctx)
		}
	}
}

// scan evaluates every tracked pair once, manages the open position, and
// executes the best clearing opportunity.
func (s *Service) scan(ctx context.Context) {
	start := time.Now()
	ScansTotal.Inc()
	defer func() {
		ScanDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	s.mu.RLock()
	pairs := make([]types.MatchedPair, 0, len(s.pairs))
	for _, pair := range s.pairs {
		pairs = append(pairs, pair)
	}
	s.mu.RUnlock()

	now := time.Now()
	openSeen := false

	for _, pair := range pairs {
		pair = s.overlayStreamPrices(pair)

		open, haveOpen := s.ledger.Cross()
		holdsThis := haveOpen && open.Opportunity.Name == pair.A.Title

		if s.inCooldown(pair.Key(), now) {
			// The held pair is still tracked; a skip is not a vanish.
			if holdsThis {
				openSeen = true
			}
			SkipsTotal.WithLabelValues("cooldown").Inc()
			continue
		}
		if expired(pair.A, now) || expired(pair.B, now) {
			if holdsThis {
				openSeen = true
			}
			SkipsTotal.WithLabelValues("expired").Inc()
			continue
		}

		opp := s.cfg.Evaluator.EvaluateCrossVenue(pair)

		if opp == nil {
			if holdsThis {
				s.exitPosition(ctx, open, pair, "vanished")
			}
			continue
		}

		s.remember(opp)

		if s.cfg.Alerter != nil && s.cfg.AlertThresholdCents > 0 &&
			opp.NetProfitCents >= s.cfg.AlertThresholdCents {
			s.cfg.Alerter.BigOpportunity(opp.Name, opp.NetProfitCents)
		}

		if holdsThis {
			openSeen = true
			s.markToMarket(open, pair)
			continue
		}

		if haveOpen {
			// Rotation: strictly better elsewhere frees the slot for the
			// next scan.
			if opp.NetProfitCents > open.ExpectedNetCents {
				if heldPair, ok := s.pairFor(open); ok {
					s.exitPosition(ctx, open, heldPair, "rotation")
				}
			}
			continue
		}

		if s.tryExecute(ctx, opp, pair, now) {
			openSeen = true
		}
	}

	if open, haveOpen := s.ledger.Cross(); haveOpen && !openSeen {
		// The held market dropped out of the tracked set entirely.
		if heldPair, ok := s.pairFor(open); ok {
			s.exitPosition(ctx, open, heldPair, "vanished")
		}
	}
}

// overlayStreamPrices replaces venue A catalog prices with fresher
// stream quotes when the cache has them.
func (s *Service) overlayStreamPrices(pair types.MatchedPair) types.MatchedPair {
	if s.cfg.Quotes == nil {
		return pair
	}

	if q, ok := s.cfg.Quotes.Quote(types.VenueA, pair.A.YesID); ok {
		if cents := q.BestAskCents(); cents > 0 {
			pair.A.YesPriceCents = cents
		}
	}
	if q, ok := s.cfg.Quotes.Quote(types.VenueA, pair.A.NoID); ok {
		if cents := q.BestAskCents(); cents > 0 {
			pair.A.NoPriceCents = cents
		}
	}

	return pair
}

// tryExecute gates and sizes one opportunity, then runs the executor.
// Reports whether a live position was opened.
func (s *Service) tryExecute(ctx context.Context, opp *arbitrage.Opportunity, pair types.MatchedPair, now time.Time) bool {
	if s.cfg.Gate != nil && !s.cfg.Gate.IsEnabled() {
		SkipsTotal.WithLabelValues("circuit_breaker").Inc()
		s.recordNearMiss(ctx, opp, "circuit breaker open")
		return false
	}

	contracts := s.sizeContracts(opp)
	if contracts <= 0 {
		SkipsTotal.WithLabelValues("size_zero").Inc()
		s.recordNearMiss(ctx, opp, "trade amount below one contract")
		return false
	}

	legA := execution.Leg{
		Venue:      types.VenueA,
		MarketID:   pair.A.MarketID,
		TokenID:    pair.A.IDForSide(opp.SideA),
		Side:       opp.SideA,
		PriceCents: opp.PriceACents,
	}
	legB := execution.Leg{
		Venue:      types.VenueB,
		MarketID:   pair.B.MarketID,
		TokenID:    pair.B.IDForSide(opp.SideB),
		Side:       opp.SideB,
		PriceCents: opp.PriceBCents,
	}

	result := s.cfg.Executor.Execute(ctx, opp, legA, legB, contracts)

	if !result.Success {
		s.recordNearMiss(ctx, opp, result.Reason)
		if result.CriticalPartialFill {
			// Cooldown anyway: the book is in an unknown state.
			s.setCooldown(pair.Key(), now)
		}
		return false
	}

	s.setCooldown(pair.Key(), now)

	if result.DryRun {
		return false
	}

	position := &Position{
		ID:               uuid.New().String(),
		Opportunity:      opp,
		SharesA:          result.Contracts,
		SharesB:          result.Contracts,
		OutcomeIDA:       legA.TokenID,
		OutcomeIDB:       legB.TokenID,
		EntryPriceACents: opp.PriceACents,
		EntryPriceBCents: opp.PriceBCents,
		EntryTime:        now,
		ExpectedNetCents: opp.NetProfitCents,
	}

	if err := s.ledger.OpenCross(position); err != nil {
		s.logger.Error("position-open-failed", zap.Error(err))
		return false
	}

	s.recordEntry(ctx, opp, pair, result.Contracts, now)

	return true
}

// exitPosition unwinds both legs and clears local state. Failures alert
// critically but never retry.
func (s *Service) exitPosition(ctx context.Context, pos *Position, pair types.MatchedPair, trigger string) {
	pair = s.overlayStreamPrices(pair)

	legA := execution.Leg{
		Venue:      types.VenueA,
		MarketID:   pair.A.MarketID,
		TokenID:    pos.OutcomeIDA,
		Side:       pos.Opportunity.SideA,
		PriceCents: pair.A.PriceForSide(pos.Opportunity.SideA),
	}
	legB := execution.Leg{
		Venue:      types.VenueB,
		MarketID:   pair.B.MarketID,
		TokenID:    pos.OutcomeIDB,
		Side:       pos.Opportunity.SideB,
		PriceCents: pair.B.PriceForSide(pos.Opportunity.SideB),
	}

	result := s.cfg.Executor.Unwind(ctx, pos.Opportunity.Name, legA, legB, pos.SharesA)

	s.ledger.CloseCross()
	ExitsTotal.WithLabelValues(trigger).Inc()

	s.logger.Info("position-exit",
		zap.String("market", pos.Opportunity.Name),
		zap.String("trigger", trigger),
		zap.Bool("success", result.Success))

	if !result.Success && !result.DryRun && s.cfg.Alerter != nil {
		s.cfg.Alerter.Critical("position_exit_failed",
			"exit on "+pos.Opportunity.Name+" failed: "+result.Reason+" — local state cleared, check venue positions")
	}

	s.recordExit(ctx, pos, legA.PriceCents, legB.PriceCents, time.Now())
}

// markToMarket logs the current PnL of the open position.
func (s *Service) markToMarket(pos *Position, pair types.MatchedPair) {
	mark := pos.MarkToMarket(
		pair.A.PriceForSide(pos.Opportunity.SideA),
		pair.B.PriceForSide(pos.Opportunity.SideB),
	)

	MarkPnlCents.Set(float64(mark.PnlCents))

	s.logger.Debug("mark-to-market",
		zap.String("market", pos.Opportunity.Name),
		zap.Int("value-cents", mark.ValueCents),
		zap.Int("cost-cents", mark.CostCents),
		zap.Int("pnl-cents", mark.PnlCents))
}

// resolutionLoop watches recently closed venue A markets for books that
// have not converged to payoff. Observation only.
func (s *Service) resolutionLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ResolutionCheck)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkResolutions(s.ctx)
		}
	}
}

// checkResolutions emits settlement_lag opportunities for closed markets
// whose obvious winner still trades below payoff.
func (s *Service) checkResolutions(ctx context.Context) {
	closed, err := s.cfg.VenueA.ClosedOutcomes(ctx, s.cfg.MarketLimit)
	if err != nil {
		s.logger.Warn("resolution-check-failed", zap.Error(err))
		return
	}

	for _, outcome := range closed {
		winner, price, ok := obviousWinner(outcome)
		if !ok {
			continue
		}
		if 100-price < s.cfg.MinProfitCents {
			continue
		}

		opp := arbitrage.NewSettlementLagOpportunity(outcome, winner, price)
		s.remember(opp)
		SettlementLagsTotal.Inc()

		s.logger.Info("settlement-lag-detected",
			zap.String("market", outcome.Title),
			zap.String("winner", string(winner)),
			zap.Int("price-cents", price),
			zap.Int("profit-cents", opp.NetProfitCents))
	}
}

// obviousWinner returns the resolved side when one side trades at or
// above the winner floor while the other has collapsed.
func obviousWinner(o types.Outcome) (types.Side, int, bool) {
	switch {
	case o.YesPriceCents >= winnerFloorCents && o.YesPriceCents < 100:
		return types.SideYes, o.YesPriceCents, true
	case o.NoPriceCents >= winnerFloorCents && o.NoPriceCents < 100:
		return types.SideNo, o.NoPriceCents, true
	default:
		return types.SideYes, 0, false
	}
}

// Pairs returns a snapshot of the tracked pairs.
func (s *Service) Pairs() []types.MatchedPair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.MatchedPair, 0, len(s.pairs))
	for _, pair := range s.pairs {
		out = append(out, pair)
	}

	return out
}

// Opportunities returns the most recent detected opportunities, newest
// first.
func (s *Service) Opportunities() []*arbitrage.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*arbitrage.Opportunity, len(s.recent))
	for i, opp := range s.recent {
		out[len(s.recent)-1-i] = opp
	}

	return out
}

func (s *Service) remember(opp *arbitrage.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.recent) >= recentOpportunityCap {
		s.recent = s.recent[1:]
	}
	s.recent = append(s.recent, opp)
}

func (s *Service) pairFor(pos *Position) (types.MatchedPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pair := range s.pairs {
		if pair.A.Title == pos.Opportunity.Name {
			return pair, true
		}
	}

	return types.MatchedPair{}, false
}

func (s *Service) inCooldown(key string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last, ok := s.lastTrade[key]

	return ok && now.Sub(last) < s.cfg.TradeCooldown
}

func (s *Service) setCooldown(key string, now time.Time) {
	s.mu.Lock()
	s.lastTrade[key] = now
	s.mu.Unlock()
}

// sizeContracts converts the configured trade amount into contracts at
// the opportunity's per-contract cost.
func (s *Service) sizeContracts(opp *arbitrage.Opportunity) int {
	if opp.Contracts > 0 {
		return opp.Contracts
	}
	if opp.TotalCostCents <= 0 {
		return 0
	}

	return int(s.cfg.TradeDollars*100) / opp.TotalCostCents
}

// recordEntry persists the entry trade. Storage failures are logged and
// swallowed.
func (s *Service) recordEntry(ctx context.Context, opp *arbitrage.Opportunity, pair types.MatchedPair, contracts int, now time.Time) {
	if s.cfg.Storage == nil {
		return
	}

	record := &storage.TradeRecord{
		ID:               uuid.New().String(),
		Name:             opp.Name,
		Type:             storage.TradeEntry,
		Strategy:         string(opp.Strategy),
		SideA:            string(opp.SideA),
		SideB:            string(opp.SideB),
		PriceACents:      opp.PriceACents,
		PriceBCents:      opp.PriceBCents,
		Contracts:        contracts,
		TotalCost:        decimal.New(int64(opp.TotalCostCents*contracts), -2),
		GrossSpreadCents: opp.GrossSpreadCents,
		Fees:             decimal.New(int64(opp.FeesCents*contracts), -2),
		ExpectedNet:      decimal.New(int64(opp.NetProfitCents*contracts), -2),
		ExpiresAt:        pair.A.CloseTime,
		EntryTime:        now,
		CreatedAt:        now,
	}

	if err := s.cfg.Storage.RecordTrade(ctx, record); err != nil {
		s.logger.Warn("trade-record-failed", zap.Error(err))
	}
}

// recordExit persists the exit trade with the realized spread.
func (s *Service) recordExit(ctx context.Context, pos *Position, exitPriceACents, exitPriceBCents int, now time.Time) {
	if s.cfg.Storage == nil {
		return
	}

	opp := pos.Opportunity
	mark := pos.MarkToMarket(exitPriceACents, exitPriceBCents)

	record := &storage.TradeRecord{
		ID:          uuid.New().String(),
		Name:        opp.Name,
		Type:        storage.TradeExit,
		Strategy:    string(opp.Strategy),
		SideA:       string(opp.SideA),
		SideB:       string(opp.SideB),
		PriceACents: exitPriceACents,
		PriceBCents: exitPriceBCents,
		Contracts:   pos.SharesA,
		TotalCost:   decimal.New(int64(mark.CostCents), -2),
		ExpectedNet: decimal.New(int64(pos.ExpectedNetCents*pos.SharesA), -2),
		ActualNet:   decimal.New(int64(mark.PnlCents), -2),
		EntryTime:   pos.EntryTime,
		ExitTime:    now,
		HoldMs:      now.Sub(pos.EntryTime).Milliseconds(),
		CreatedAt:   now,
	}

	if err := s.cfg.Storage.RecordTrade(ctx, record); err != nil {
		s.logger.Warn("trade-record-failed", zap.Error(err))
	}
}

// recordNearMiss persists a skipped opportunity.
func (s *Service) recordNearMiss(ctx context.Context, opp *arbitrage.Opportunity, reason string) {
	if s.cfg.Storage == nil {
		return
	}

	miss := &storage.NearMissRecord{
		ID:             uuid.New().String(),
		Name:           opp.Name,
		Strategy:       string(opp.Strategy),
		NetProfitCents: opp.NetProfitCents,
		TotalCost:      decimal.New(int64(opp.TotalCostCents), -2),
		Reason:         reason,
		CreatedAt:      time.Now(),
	}

	if err := s.cfg.Storage.RecordNearMiss(ctx, miss); err != nil {
		s.logger.Warn("near-miss-record-failed", zap.Error(err))
	}
}

// expired reports whether an outcome's settlement window has closed.
func expired(o types.Outcome, now time.Time) bool {
	return !o.CloseTime.IsZero() && o.CloseTime.Before(now)
}

// matchesAnyTicker reports whether a title or market ID carries one of
// the configured ticker patterns.
func matchesAnyTicker(o types.Outcome, tickers []string) bool {
	if len(tickers) == 0 {
		return false
	}

	title := strings.ToLower(o.Title)
	market := strings.ToLower(o.MarketID)
	for _, ticker := range tickers {
		t := strings.ToLower(ticker)
		if t == "" {
			continue
		}
		if strings.Contains(title, t) || strings.Contains(market, t) {
			return true
		}
	}

	return false
}
