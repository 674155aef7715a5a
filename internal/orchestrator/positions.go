package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
)

// Position is one open dual-leg holding. Created on dual-leg success,
// closed on exit, never otherwise mutated.
type Position struct {
	ID               string
	Opportunity      *arbitrage.Opportunity
	SharesA          int
	SharesB          int
	OutcomeIDA       string
	OutcomeIDB       string
	EntryPriceACents int
	EntryPriceBCents int
	EntryTime        time.Time
	ExpectedNetCents int
}

// Mark is one mark-to-market computation, all values in cents.
type Mark struct {
	ValueCents int
	CostCents  int
	PnlCents   int
}

// MarkToMarket values the position at the given current per-contract
// prices.
func (p *Position) MarkToMarket(priceACents, priceBCents int) Mark {
	value := p.SharesA*priceACents + p.SharesB*priceBCents
	cost := p.SharesA*p.EntryPriceACents + p.SharesB*p.EntryPriceBCents

	return Mark{
		ValueCents: value,
		CostCents:  cost,
		PnlCents:   value - cost,
	}
}

// defaultGlobalSameMarketCap bounds total same-market positions.
const defaultGlobalSameMarketCap = 10

// Ledger owns open positions: at most one cross-venue position, plus
// capped same-market positions per market and globally.
type Ledger struct {
	mu           sync.RWMutex
	cross        *Position
	sameMarket   map[string][]*Position // keyed by market ID
	perMarketCap int
	globalCap    int
}

// NewLedger creates a ledger with the given same-market caps. Zero caps
// get defaults (1 per market, 10 global).
func NewLedger(perMarketCap, globalCap int) *Ledger {
	if perMarketCap <= 0 {
		perMarketCap = 1
	}
	if globalCap <= 0 {
		globalCap = defaultGlobalSameMarketCap
	}

	return &Ledger{
		sameMarket:   make(map[string][]*Position),
		perMarketCap: perMarketCap,
		globalCap:    globalCap,
	}
}

// OpenCross records the single cross-venue position. Fails while one is
// already open.
func (l *Ledger) OpenCross(p *Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cross != nil {
		return fmt.Errorf("cross-venue position already open on %q", l.cross.Opportunity.Name)
	}

	l.cross = p
	PositionsOpen.WithLabelValues("cross_venue").Set(1)

	return nil
}

// Cross returns the open cross-venue position, if any.
func (l *Ledger) Cross() (*Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.cross, l.cross != nil
}

// CloseCross clears the cross-venue position and returns it.
func (l *Ledger) CloseCross() (*Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.cross
	l.cross = nil
	PositionsOpen.WithLabelValues("cross_venue").Set(0)

	return p, p != nil
}

// OpenSameMarket records a same-market position, enforcing both caps.
func (l *Ledger) OpenSameMarket(marketID string, p *Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.sameMarket[marketID]) >= l.perMarketCap {
		return fmt.Errorf("market %q at per-market cap %d", marketID, l.perMarketCap)
	}
	if l.totalSameMarketLocked() >= l.globalCap {
		return fmt.Errorf("same-market positions at global cap %d", l.globalCap)
	}

	l.sameMarket[marketID] = append(l.sameMarket[marketID], p)
	PositionsOpen.WithLabelValues("same_market").Set(float64(l.totalSameMarketLocked()))

	return nil
}

// CloseMarket drops every position held on one market and returns them.
// Used when a settlement window expires.
func (l *Ledger) CloseMarket(marketID string) []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	closed := l.sameMarket[marketID]
	delete(l.sameMarket, marketID)
	PositionsOpen.WithLabelValues("same_market").Set(float64(l.totalSameMarketLocked()))

	return closed
}

// SameMarketCount returns open positions on one market.
func (l *Ledger) SameMarketCount(marketID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.sameMarket[marketID])
}

// All returns a snapshot of every open position, cross-venue first.
func (l *Ledger) All() []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Position, 0, 1+l.totalSameMarketLocked())
	if l.cross != nil {
		out = append(out, l.cross)
	}
	for _, positions := range l.sameMarket {
		out = append(out, positions...)
	}

	return out
}

func (l *Ledger) totalSameMarketLocked() int {
	total := 0
	for _, positions := range l.sameMarket {
		total += len(positions)
	}

	return total
}
