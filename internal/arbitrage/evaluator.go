package arbitrage

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/book"
	"github.com/mselser95/crossmarket-arb/pkg/types"
)

const (
	// DefaultMinProfitCents is the per-contract net profit floor.
	DefaultMinProfitCents = 2
	// DefaultMinPriceThreshold filters quotes at or below this many cents.
	// Prices that low are illiquid dust, not tradeable edge.
	DefaultMinPriceThreshold = 2
	// DefaultTargetPairCost is the same-market pair cost ceiling in dollars.
	DefaultTargetPairCost = 0.97

	// pairCostEpsilon absorbs float noise when a walked pair cost lands
	// exactly on the target boundary.
	pairCostEpsilon = 1e-9
)

// Rejection reasons recorded on the evaluation metrics.
const (
	reasonInvalidPrices     = "invalid_prices"
	reasonBelowPriceFloor   = "below_price_floor"
	reasonBelowMinProfit    = "below_min_profit"
	reasonNoLiquidity       = "insufficient_liquidity"
	reasonPairCostTooHigh   = "pair_cost_above_target"
	reasonNegativeNetProfit = "negative_net_after_fees"
)

// Config holds the evaluation thresholds.
type Config struct {
	// MinProfitCents is the minimum per-contract net profit to emit.
	MinProfitCents int
	// MinPriceThreshold rejects pairs where any of the four quotes is at
	// or below this many cents.
	MinPriceThreshold int
	// FeeCents is the flat per-contract fee constant charged against
	// cross-venue spreads.
	FeeCents int
	// TargetPairCost is the strict ceiling (dollars) on YES+NO VWAP for
	// the same-market strategy.
	TargetPairCost float64
	// OrderSize is the contract count the same-market walks fill.
	OrderSize float64
	// FlatFeeCents overrides the venue fee curve with a flat
	// cents-per-contract charge when positive.
	FlatFeeCents int
	Logger       *zap.Logger
}

// Evaluator prices matched pairs and single-venue books. All methods are
// pure: no clocks beyond timestamping, no I/O, no retained state.
type Evaluator struct {
	config Config
	logger *zap.Logger
}

// New creates an Evaluator, applying defaults for unset thresholds.
func New(cfg Config) *Evaluator {
	if cfg.MinProfitCents <= 0 {
		cfg.MinProfitCents = DefaultMinProfitCents
	}
	if cfg.MinPriceThreshold <= 0 {
		cfg.MinPriceThreshold = DefaultMinPriceThreshold
	}
	if cfg.TargetPairCost <= 0 {
		cfg.TargetPairCost = DefaultTargetPairCost
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Evaluator{
		config: cfg,
		logger: cfg.Logger,
	}
}

// EvaluateCrossVenue prices both complementary-side strategies for a
// matched pair and returns the better one, or nil when neither clears the
// profit floor. Each strategy pairs one side on venue A with the opposite
// side on venue B, so both legs cannot win; ties go to buying YES on A.
func (e *Evaluator) EvaluateCrossVenue(pair types.MatchedPair) *Opportunity {
	PairsEvaluatedTotal.Inc()

	if !pair.A.WellFormed() || !pair.B.WellFormed() {
		e.reject(reasonInvalidPrices, pair.A.Title)
		return nil
	}

	if e.belowFloor(pair.A.YesPriceCents, pair.A.NoPriceCents, pair.B.YesPriceCents, pair.B.NoPriceCents) {
		e.reject(reasonBelowPriceFloor, pair.A.Title)
		return nil
	}

	yesANoB := newCrossVenueOpportunity(pair, StrategyYesANoB, e.config.FeeCents)
	noAYesB := newCrossVenueOpportunity(pair, StrategyNoAYesB, e.config.FeeCents)

	best := yesANoB
	if noAYesB.NetProfitCents > best.NetProfitCents {
		best = noAYesB
	}

	if best.NetProfitCents < e.config.MinProfitCents || best.NetProfitCents <= 0 {
		e.reject(reasonBelowMinProfit, pair.A.Title)
		return nil
	}

	OpportunitiesFoundTotal.WithLabelValues(string(best.Strategy)).Inc()
	NetProfitCents.WithLabelValues(string(best.Strategy)).Observe(float64(best.NetProfitCents))

	e.logger.Debug("cross-venue-opportunity",
		zap.String("id", best.ID),
		zap.String("market", best.Name),
		zap.String("strategy", string(best.Strategy)),
		zap.Int("price_a_cents", best.PriceACents),
		zap.Int("price_b_cents", best.PriceBCents),
		zap.Int("net_profit_cents", best.NetProfitCents),
	)

	return best
}

// EvaluateSameMarket walks both ask ladders of one venue A binary for the
// configured order size and emits an opportunity when the filled pair cost
// sits strictly below the target and the spread survives taker fees.
func (e *Evaluator) EvaluateSameMarket(outcome types.Outcome, yesAsks, noAsks []types.PriceLevel) *Opportunity {
	PairsEvaluatedTotal.Inc()

	size := e.config.OrderSize
	if size <= 0 {
		e.reject(reasonInvalidPrices, outcome.Title)
		return nil
	}

	yesFill, err := book.ComputeBuyFill(yesAsks, size)
	if err != nil {
		e.reject(reasonNoLiquidity, outcome.Title)
		return nil
	}

	noFill, err := book.ComputeBuyFill(noAsks, size)
	if err != nil {
		e.reject(reasonNoLiquidity, outcome.Title)
		return nil
	}

	pairCost := yesFill.VWAP + noFill.VWAP
	if pairCost >= e.config.TargetPairCost-pairCostEpsilon {
		e.reject(reasonPairCostTooHigh, outcome.Title)
		return nil
	}

	fee := book.SameMarketPairFee(yesFill.VWAP, noFill.VWAP, size)
	if e.config.FlatFeeCents > 0 {
		fee = types.CentsToDecimal(e.config.FlatFeeCents) * size
	}

	gross, net := book.PairArb(yesFill.VWAP, noFill.VWAP, size, fee)
	// Same epsilon as the pair cost check: a net that only clears zero by
	// float residue is no edge.
	if net <= pairCostEpsilon {
		e.reject(reasonNegativeNetProfit, outcome.Title)
		return nil
	}

	priceA := types.DecimalToCents(yesFill.VWAP)
	priceB := types.DecimalToCents(noFill.VWAP)

	opp := &Opportunity{
		ID:               uuid.New().String(),
		Name:             outcome.Title,
		Strategy:         StrategySameMarket,
		SideA:            types.SideYes,
		SideB:            types.SideNo,
		PriceACents:      priceA,
		PriceBCents:      priceB,
		GrossSpreadCents: 100 - priceA - priceB,
		FeesCents:        perContractCents(fee, size),
		NetProfitCents:   perContractCents(net, size),
		TotalCostCents:   priceA + priceB + perContractCents(fee, size),
		Contracts:        int(size),
		TotalVolumeUSD:   outcome.VolumeUSD,
		DetectedAt:       time.Now().UTC(),
	}

	OpportunitiesFoundTotal.WithLabelValues(string(StrategySameMarket)).Inc()
	NetProfitCents.WithLabelValues(string(StrategySameMarket)).Observe(float64(opp.NetProfitCents))

	e.logger.Debug("same-market-opportunity",
		zap.String("id", opp.ID),
		zap.String("market", opp.Name),
		zap.Float64("pair_cost", pairCost),
		zap.Float64("gross_usd", gross),
		zap.Float64("net_usd", net),
	)

	return opp
}

// belowFloor reports whether any quote fails the strict price floor.
func (e *Evaluator) belowFloor(cents ...int) bool {
	for _, c := range cents {
		if c <= e.config.MinPriceThreshold {
			return true
		}
	}

	return false
}

func (e *Evaluator) reject(reason, market string) {
	PairsRejectedTotal.WithLabelValues(reason).Inc()
	e.logger.Debug("pair-rejected",
		zap.String("reason", reason),
		zap.String("market", market),
	)
}

// perContractCents converts a dollar total over size contracts to rounded
// cents per contract.
func perContractCents(dollars, size float64) int {
	if size <= 0 {
		return 0
	}

	return int(math.Round(dollars / size * 100))
}
