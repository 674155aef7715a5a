package book

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// Fill is the result of walking an ask ladder for a buy.
type Fill struct {
	TotalCost  float64 // dollars
	VWAP       float64 // TotalCost / target size
	WorstPrice float64 // last level touched
	BestPrice  float64 // first level touched
	Filled     float64 // contracts filled, equals target on success
}

// level is a parsed, validated price level.
type level struct {
	price float64
	size  float64
}

// parseLevels converts wire levels to floats, discarding entries with
// non-finite or non-positive price or size.
func parseLevels(raw []types.PriceLevel) []level {
	levels := make([]level, 0, len(raw))

	for _, pl := range raw {
		price, err := strconv.ParseFloat(pl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(pl.Size, 64)
		if err != nil {
			continue
		}

		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			continue
		}
		if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
			continue
		}

		levels = append(levels, level{price: price, size: size})
	}

	return levels
}

// ComputeBuyFill walks the ask ladder for targetSize contracts and reports
// the volume-weighted cost. The ladder is re-sorted ascending before the
// walk; malformed levels are discarded. When the ladder cannot cover
// targetSize the returned error wraps types.ErrInsufficientLiquidity and
// callers must skip, not submit a smaller order on their own.
func ComputeBuyFill(asks []types.PriceLevel, targetSize float64) (Fill, error) {
	if targetSize <= 0 {
		return Fill{}, fmt.Errorf("target size must be positive, got %v", targetSize)
	}

	levels := parseLevels(asks)
	if len(levels) == 0 {
		return Fill{}, fmt.Errorf("empty ask ladder: %w", types.ErrInsufficientLiquidity)
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].price < levels[j].price
	})

	remaining := targetSize
	totalCost := 0.0
	worst := 0.0

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}

		take := lvl.size
		if take > remaining {
			take = remaining
		}

		totalCost += take * lvl.price
		worst = lvl.price
		remaining -= take
	}

	if remaining > 0 {
		return Fill{}, fmt.Errorf("ladder covers %v of %v contracts: %w",
			targetSize-remaining, targetSize, types.ErrInsufficientLiquidity)
	}

	return Fill{
		TotalCost:  totalCost,
		VWAP:       totalCost / targetSize,
		WorstPrice: worst,
		BestPrice:  levels[0].price,
		Filled:     targetSize,
	}, nil
}

// Depth returns the total valid contract size resting on the ladder, used
// by the executor's liquidity probe.
func Depth(asks []types.PriceLevel) float64 {
	total := 0.0
	for _, lvl := range parseLevels(asks) {
		total += lvl.size
	}

	return total
}
