package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/matching"
	"github.com/mselser95/crossmarket-arb/internal/storage"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

type mockVenueA struct {
	mu     sync.Mutex
	active []types.Outcome
	closed []types.Outcome
	books  map[string]*types.OrderBook
	err    error
}

func (m *mockVenueA) ActiveOutcomes(_ context.Context, _ int) ([]types.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.err
}

func (m *mockVenueA) ClosedOutcomes(_ context.Context, _ int) ([]types.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.err
}

func (m *mockVenueA) FetchBook(_ context.Context, tokenID string) (*types.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if book, ok := m.books[tokenID]; ok {
		return book, nil
	}

	return nil, types.ErrNoOrderbook
}

type mockVenueB struct {
	mu       sync.Mutex
	outcomes []types.Outcome
	err      error
}

func (m *mockVenueB) FetchOpenMarkets(_ context.Context, _ int) ([]types.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes, m.err
}

type executeCall struct {
	opp       *arbitrage.Opportunity
	legA      execution.Leg
	legB      execution.Leg
	contracts int
}

type mockExecutor struct {
	mu       sync.Mutex
	executes []executeCall
	unwinds  []string
	result   *execution.Result
}

func (m *mockExecutor) Execute(_ context.Context, opp *arbitrage.Opportunity, legA, legB execution.Leg, contracts int) *execution.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executes = append(m.executes, executeCall{opp: opp, legA: legA, legB: legB, contracts: contracts})
	if m.result != nil {
		return m.result
	}

	return &execution.Result{Success: true, Contracts: contracts}
}

func (m *mockExecutor) Unwind(_ context.Context, name string, _, _ execution.Leg, contracts int) *execution.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unwinds = append(m.unwinds, name)

	return &execution.Result{Success: true, Contracts: contracts}
}

type orchAlerter struct {
	mu        sync.Mutex
	big       []string
	criticals []string
	summaries int
}

func (a *orchAlerter) BigOpportunity(name string, _ int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.big = append(a.big, name)
}

func (a *orchAlerter) DailySummary(_, _, _ int, _ float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries++
}

func (a *orchAlerter) Critical(alertType, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.criticals = append(a.criticals, alertType)
}

type mockGate struct{ enabled bool }

func (g *mockGate) IsEnabled() bool { return g.enabled }

type recordingStorage struct {
	mu     sync.Mutex
	trades []*storage.TradeRecord
	misses []*storage.NearMissRecord
}

func (r *recordingStorage) RecordTrade(_ context.Context, trade *storage.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
	return nil
}

func (r *recordingStorage) RecordNearMiss(_ context.Context, miss *storage.NearMissRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, miss)
	return nil
}

func (r *recordingStorage) DailyStats(_ context.Context, day string) (*storage.DailyStats, error) {
	return &storage.DailyStats{Day: day}, nil
}

func (r *recordingStorage) Close() error { return nil }

// profitable pair: YES on A at 45¢ + NO on B at 50¢, fee 1¢ → net 4¢.
func profitableOutcomes() (types.Outcome, types.Outcome) {
	closeTime := time.Now().Add(time.Hour)

	a := types.Outcome{
		Venue:         types.VenueA,
		MarketID:      "0xcond1",
		Title:         "Will bitcoin close above 100k today?",
		YesID:         "tok-yes",
		NoID:          "tok-no",
		YesPriceCents: 45,
		NoPriceCents:  56,
		VolumeUSD:     5000,
		CloseTime:     closeTime,
	}
	b := types.Outcome{
		Venue:         types.VenueB,
		MarketID:      "BTC-100K",
		Title:         "Will bitcoin close above 100k today?",
		YesID:         "BTC-100K",
		NoID:          "BTC-100K",
		YesPriceCents: 55,
		NoPriceCents:  50,
		VolumeUSD:     3000,
		CloseTime:     closeTime,
	}

	return a, b
}

func newTestService(t *testing.T, venueA *mockVenueA, venueB *mockVenueB, exec *mockExecutor, alerter Alerter, store storage.Storage, gate Gate) *Service {
	t.Helper()

	svc := New(Config{
		VenueA:  venueA,
		VenueB:  venueB,
		Matcher: matching.New(matching.Config{Logger: zap.NewNop()}),
		Evaluator: arbitrage.New(arbitrage.Config{
			MinProfitCents: 2,
			FeeCents:       1,
			Logger:         zap.NewNop(),
		}),
		Executor:            exec,
		Alerter:             alerter,
		Storage:             store,
		Gate:                gate,
		TradeCooldown:       10 * time.Second,
		MinProfitCents:      2,
		AlertThresholdCents: 10,
		TradeDollars:        10,
		Logger:              zap.NewNop(),
	})
	svc.ctx, svc.cancel = context.WithCancel(context.Background())
	t.Cleanup(svc.cancel)

	return svc
}

func TestRefreshMarkets_PairsAndDropsExpired(t *testing.T) {
	a, b := profitableOutcomes()

	expiredA := a
	expiredA.Title = "Expired window market"
	expiredA.MarketID = "0xold"
	expiredA.CloseTime = time.Now().Add(-time.Minute)
	expiredB := b
	expiredB.Title = "Expired window market"
	expiredB.MarketID = "OLD-1"
	expiredB.CloseTime = time.Now().Add(-time.Minute)

	venueA := &mockVenueA{active: []types.Outcome{a, expiredA}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b, expiredB}}
	svc := newTestService(t, venueA, venueB, &mockExecutor{}, nil, nil, nil)

	if err := svc.refreshMarkets(context.Background()); err != nil {
		t.Fatalf("refreshMarkets: %v", err)
	}

	pairs := svc.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1 (expired dropped)", len(pairs))
	}
	if pairs[0].A.MarketID != "0xcond1" {
		t.Errorf("paired market = %s, want 0xcond1", pairs[0].A.MarketID)
	}
}

func TestRefreshMarkets_CatalogErrorPropagates(t *testing.T) {
	venueA := &mockVenueA{err: errors.New("catalog down")}
	svc := newTestService(t, venueA, &mockVenueB{}, &mockExecutor{}, nil, nil, nil)

	if err := svc.refreshMarkets(context.Background()); err == nil {
		t.Fatal("expected catalog error")
	}
}

func TestScan_ExecutesProfitablePairAndOpensPosition(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	exec := &mockExecutor{}
	store := &recordingStorage{}
	svc := newTestService(t, venueA, venueB, exec, nil, store, &mockGate{enabled: true})

	if err := svc.refreshMarkets(context.Background()); err != nil {
		t.Fatalf("refreshMarkets: %v", err)
	}

	svc.scan(context.Background())

	if len(exec.executes) != 1 {
		t.Fatalf("executes = %d, want 1", len(exec.executes))
	}

	call := exec.executes[0]
	if call.opp.Strategy != arbitrage.StrategyYesANoB {
		t.Errorf("strategy = %s, want yes_a_no_b", call.opp.Strategy)
	}
	if call.legA.TokenID != "tok-yes" || call.legB.TokenID != "BTC-100K" {
		t.Errorf("legs = %q/%q, want tok-yes/BTC-100K", call.legA.TokenID, call.legB.TokenID)
	}
	// $10 at 96¢ total cost per contract → 10 contracts.
	if call.contracts != 10 {
		t.Errorf("contracts = %d, want 10", call.contracts)
	}

	if _, open := svc.Ledger().Cross(); !open {
		t.Error("expected open cross-venue position after live success")
	}
	if len(store.trades) != 1 || store.trades[0].Type != storage.TradeEntry {
		t.Errorf("stored trades = %+v, want one entry", store.trades)
	}

	// Second scan inside the cooldown must not trade again.
	svc.scan(context.Background())
	if len(exec.executes) != 1 {
		t.Errorf("executes after cooldown scan = %d, want still 1", len(exec.executes))
	}
}

func TestScan_CooldownScanKeepsOpenPosition(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	exec := &mockExecutor{}
	store := &recordingStorage{}
	svc := newTestService(t, venueA, venueB, exec, nil, store, &mockGate{enabled: true})

	svc.refreshMarkets(context.Background())
	svc.scan(context.Background())

	if _, open := svc.Ledger().Cross(); !open {
		t.Fatal("expected open position after the opening scan")
	}

	// Rescan while the held pair is still inside the trade cooldown.
	svc.scan(context.Background())

	if _, open := svc.Ledger().Cross(); !open {
		t.Error("cooldown scan must keep the open position")
	}
	if len(exec.unwinds) != 0 {
		t.Errorf("unwinds = %d, want 0", len(exec.unwinds))
	}
	for _, tr := range store.trades {
		if tr.Type == storage.TradeExit {
			t.Errorf("unexpected exit trade for %s", tr.Name)
		}
	}
}

func TestScan_DryRunOpensNoPosition(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	exec := &mockExecutor{result: &execution.Result{Success: true, DryRun: true, Contracts: 10}}
	svc := newTestService(t, venueA, venueB, exec, nil, nil, &mockGate{enabled: true})

	svc.refreshMarkets(context.Background())
	svc.scan(context.Background())

	if len(exec.executes) != 1 {
		t.Fatalf("executes = %d, want 1", len(exec.executes))
	}
	if _, open := svc.Ledger().Cross(); open {
		t.Error("dry run must not open a position")
	}
}

func TestScan_CircuitBreakerBlocksAndRecordsNearMiss(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	exec := &mockExecutor{}
	store := &recordingStorage{}
	svc := newTestService(t, venueA, venueB, exec, nil, store, &mockGate{enabled: false})

	svc.refreshMarkets(context.Background())
	svc.scan(context.Background())

	if len(exec.executes) != 0 {
		t.Errorf("executes = %d, want 0 with breaker open", len(exec.executes))
	}
	if len(store.misses) != 1 {
		t.Fatalf("near misses = %d, want 1", len(store.misses))
	}
	if store.misses[0].Reason != "circuit breaker open" {
		t.Errorf("reason = %q", store.misses[0].Reason)
	}
}

func TestScan_BigOpportunityAlert(t *testing.T) {
	a, b := profitableOutcomes()
	// Net 100-40-45-1 = 14¢, above the 10¢ alert threshold.
	a.YesPriceCents = 40
	b.NoPriceCents = 45

	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	alerter := &orchAlerter{}
	svc := newTestService(t, venueA, venueB, &mockExecutor{}, alerter, nil, &mockGate{enabled: true})

	svc.refreshMarkets(context.Background())
	svc.scan(context.Background())

	if len(alerter.big) != 1 {
		t.Errorf("big opportunity alerts = %d, want 1", len(alerter.big))
	}
}

func TestScan_ExitsVanishedOpportunity(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	exec := &mockExecutor{}
	store := &recordingStorage{}
	svc := newTestService(t, venueA, venueB, exec, nil, store, &mockGate{enabled: true})

	svc.refreshMarkets(context.Background())
	svc.scan(context.Background())
	if _, open := svc.Ledger().Cross(); !open {
		t.Fatal("expected open position")
	}

	// Spread collapses: 60+50+1 > 100, no opportunity.
	venueB.mu.Lock()
	venueB.outcomes[0].NoPriceCents = 56
	venueB.mu.Unlock()
	svc.pollVenueB(context.Background())

	// Outside the trade cooldown.
	svc.mu.Lock()
	for k := range svc.lastTrade {
		svc.lastTrade[k] = time.Now().Add(-time.Minute)
	}
	svc.mu.Unlock()

	svc.scan(context.Background())

	if _, open := svc.Ledger().Cross(); open {
		t.Error("position should close when the opportunity vanishes")
	}
	if len(exec.unwinds) != 1 {
		t.Fatalf("unwinds = %d, want 1", len(exec.unwinds))
	}

	var exit *storage.TradeRecord
	for _, tr := range store.trades {
		if tr.Type == storage.TradeExit {
			exit = tr
		}
	}
	if exit == nil {
		t.Fatal("expected a stored exit trade")
	}
	if exit.HoldMs < 0 {
		t.Errorf("HoldMs = %d, want >= 0", exit.HoldMs)
	}
}

func TestPollVenueB_UpdatesPairPrices(t *testing.T) {
	a, b := profitableOutcomes()
	venueA := &mockVenueA{active: []types.Outcome{a}}
	venueB := &mockVenueB{outcomes: []types.Outcome{b}}
	svc := newTestService(t, venueA, venueB, &mockExecutor{}, nil, nil, nil)

	svc.refreshMarkets(context.Background())

	venueB.mu.Lock()
	venueB.outcomes[0].NoPriceCents = 47
	venueB.mu.Unlock()

	svc.pollVenueB(context.Background())

	pairs := svc.Pairs()
	if len(pairs) != 1 || pairs[0].B.NoPriceCents != 47 {
		t.Errorf("pair B no price = %d, want 47", pairs[0].B.NoPriceCents)
	}
}

func TestCheckResolutions_EmitsSettlementLag(t *testing.T) {
	resolved := types.Outcome{
		Venue:         types.VenueA,
		MarketID:      "0xdone",
		Title:         "Did it happen?",
		YesID:         "tok-done-yes",
		NoID:          "tok-done-no",
		YesPriceCents: 94,
		NoPriceCents:  5,
	}
	ambiguous := resolved
	ambiguous.MarketID = "0xmid"
	ambiguous.Title = "Still trading near even"
	ambiguous.YesPriceCents = 55
	ambiguous.NoPriceCents = 45

	venueA := &mockVenueA{closed: []types.Outcome{resolved, ambiguous}}
	svc := newTestService(t, venueA, &mockVenueB{}, &mockExecutor{}, nil, nil, nil)

	svc.checkResolutions(context.Background())

	opps := svc.Opportunities()
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1 settlement lag", len(opps))
	}
	if opps[0].Strategy != arbitrage.StrategySettlementLag {
		t.Errorf("strategy = %s, want settlement_lag", opps[0].Strategy)
	}
	if opps[0].NetProfitCents != 6 {
		t.Errorf("net = %d¢, want 6 (100-94)", opps[0].NetProfitCents)
	}
}

func TestSizeContracts(t *testing.T) {
	svc := newTestService(t, &mockVenueA{}, &mockVenueB{}, &mockExecutor{}, nil, nil, nil)

	tests := []struct {
		name     string
		opp      *arbitrage.Opportunity
		expected int
	}{
		{"fixed-size-wins", &arbitrage.Opportunity{Contracts: 7, TotalCostCents: 96}, 7},
		{"ten-dollars-at-96-cents", &arbitrage.Opportunity{TotalCostCents: 96}, 10},
		{"zero-cost-guard", &arbitrage.Opportunity{TotalCostCents: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.sizeContracts(tt.opp); got != tt.expected {
				t.Errorf("sizeContracts = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestObviousWinner(t *testing.T) {
	tests := []struct {
		name  string
		yes   int
		no    int
		side  types.Side
		price int
		found bool
	}{
		{"yes-won", 95, 4, types.SideYes, 95, true},
		{"no-won", 3, 92, types.SideNo, 92, true},
		{"undecided", 55, 45, types.SideYes, 0, false},
		{"fully-converged", 100, 0, types.SideYes, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, price, found := obviousWinner(types.Outcome{YesPriceCents: tt.yes, NoPriceCents: tt.no})
			if found != tt.found {
				t.Fatalf("found = %t, want %t", found, tt.found)
			}
			if found && (side != tt.side || price != tt.price) {
				t.Errorf("winner = %s@%d, want %s@%d", side, price, tt.side, tt.price)
			}
		})
	}
}
