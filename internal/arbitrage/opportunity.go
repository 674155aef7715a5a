package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// Strategy identifies how an opportunity is constructed.
type Strategy string

const (
	// StrategyYesANoB buys YES on venue A and NO on venue B.
	StrategyYesANoB Strategy = "yes_a_no_b"
	// StrategyNoAYesB buys NO on venue A and YES on venue B.
	StrategyNoAYesB Strategy = "no_a_yes_b"
	// StrategySameMarket buys both sides of one binary on a single venue.
	StrategySameMarket Strategy = "same_market"
	// StrategySettlementLag flags post-resolution price drift. Observation
	// only: the engine never auto-executes these.
	StrategySettlementLag Strategy = "settlement_lag"
)

// CrossVenue reports whether the strategy trades one leg on each venue.
func (s Strategy) CrossVenue() bool {
	return s == StrategyYesANoB || s == StrategyNoAYesB
}

// Opportunity is a priced, profitable dislocation ready for execution.
// Prices are integer cents; per-contract profit is NetProfitCents.
type Opportunity struct {
	ID               string
	Name             string
	Strategy         Strategy
	SideA            types.Side // side bought on venue A (YES side for same-market)
	SideB            types.Side // side bought on venue B (NO side for same-market)
	PriceACents      int
	PriceBCents      int
	GrossSpreadCents int // 100 - priceA - priceB
	FeesCents        int // per contract
	NetProfitCents   int // per contract, after fees
	TotalCostCents   int // per contract, prices plus fees
	Contracts        int // suggested size; 0 lets the executor size from config
	TotalVolumeUSD   float64
	DetectedAt       time.Time
}

// newCrossVenueOpportunity builds the record for one of the two
// complementary-side strategies.
func newCrossVenueOpportunity(pair types.MatchedPair, strategy Strategy, feeCents int) *Opportunity {
	sideA, sideB := legSides(strategy)
	priceA := pair.A.PriceForSide(sideA)
	priceB := pair.B.PriceForSide(sideB)

	gross := 100 - priceA - priceB
	net := gross - feeCents

	return &Opportunity{
		ID:               uuid.New().String(),
		Name:             pair.A.Title,
		Strategy:         strategy,
		SideA:            sideA,
		SideB:            sideB,
		PriceACents:      priceA,
		PriceBCents:      priceB,
		GrossSpreadCents: gross,
		FeesCents:        feeCents,
		NetProfitCents:   net,
		TotalCostCents:   priceA + priceB + feeCents,
		TotalVolumeUSD:   pair.A.VolumeUSD + pair.B.VolumeUSD,
		DetectedAt:       time.Now().UTC(),
	}
}

// NewSettlementLagOpportunity flags a resolved market whose winning side
// still trades below payoff. priceCents is the current ask of the winner.
func NewSettlementLagOpportunity(o types.Outcome, winner types.Side, priceCents int) *Opportunity {
	profit := 100 - priceCents

	return &Opportunity{
		ID:               uuid.New().String(),
		Name:             o.Title,
		Strategy:         StrategySettlementLag,
		SideA:            winner,
		SideB:            winner.Opposite(),
		PriceACents:      priceCents,
		PriceBCents:      0,
		GrossSpreadCents: profit,
		FeesCents:        0,
		NetProfitCents:   profit,
		TotalCostCents:   priceCents,
		TotalVolumeUSD:   o.VolumeUSD,
		DetectedAt:       time.Now().UTC(),
	}
}

// legSides maps a cross-venue strategy to the side bought on each venue.
func legSides(strategy Strategy) (sideA, sideB types.Side) {
	if strategy == StrategyNoAYesB {
		return types.SideNo, types.SideYes
	}

	return types.SideYes, types.SideNo
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s strat=%s A(%s)=%d¢ B(%s)=%d¢ gross=%d¢ net=%d¢ cost=%d¢",
		o.ID[:8],
		o.Name,
		o.Strategy,
		o.SideA,
		o.PriceACents,
		o.SideB,
		o.PriceBCents,
		o.GrossSpreadCents,
		o.NetProfitCents,
		o.TotalCostCents,
	)
}
