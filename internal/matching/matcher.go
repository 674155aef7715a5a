package matching

import (
	"sort"
	"time"

	"github.com/mselser95/crossmarket-arb/pkg/types"
	"go.uber.org/zap"
)

// DefaultThreshold is the minimum combined similarity for a pair.
const DefaultThreshold = 0.7

// Config holds matcher configuration.
type Config struct {
	Threshold float64
	Logger    *zap.Logger
}

// Matcher pairs venue A outcomes with venue B outcomes by title similarity.
// Matching is greedy and one-to-one: each A outcome takes the best unpaired
// B outcome above the threshold, and a consumed B outcome is ineligible for
// later A outcomes. Greedy is deliberate: the active set is small and pair
// stability across refreshes matters more than global optimality.
type Matcher struct {
	config Config
	logger *zap.Logger
}

// New creates a new matcher.
func New(cfg Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	return &Matcher{
		config: cfg,
		logger: cfg.Logger,
	}
}

// Match produces one-to-one pairs between the two outcome lists. The A side
// is sorted by title first so the result does not depend on catalog order
// across restarts. Ties on the combined score resolve by Jaccard, then to
// the earlier candidate.
func (m *Matcher) Match(aOutcomes, bOutcomes []types.Outcome) []types.MatchedPair {
	start := time.Now()

	sorted := make([]types.Outcome, len(aOutcomes))
	copy(sorted, aOutcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Title < sorted[j].Title
	})

	consumed := make([]bool, len(bOutcomes))
	pairs := make([]types.MatchedPair, 0, len(sorted))
	now := time.Now().UTC()

	for _, a := range sorted {
		bestIdx := -1
		bestCombined := 0.0
		bestJaccard := 0.0

		for i, b := range bOutcomes {
			if consumed[i] {
				continue
			}

			combined, jaccard := ScoreTitles(a.Title, b.Title)
			CandidatesScoredTotal.Inc()

			if combined < m.config.Threshold {
				continue
			}

			if combined > bestCombined || (combined == bestCombined && jaccard > bestJaccard) {
				bestIdx = i
				bestCombined = combined
				bestJaccard = jaccard
			}
		}

		if bestIdx < 0 {
			UnmatchedOutcomesTotal.Inc()
			continue
		}

		consumed[bestIdx] = true
		pairs = append(pairs, types.MatchedPair{
			A:          a,
			B:          bOutcomes[bestIdx],
			Similarity: bestCombined,
			MatchedAt:  now,
		})

		if m.logger != nil {
			m.logger.Debug("outcome-pair-matched",
				zap.String("a-market", a.MarketID),
				zap.String("b-market", bOutcomes[bestIdx].MarketID),
				zap.Float64("similarity", bestCombined))
		}
	}

	PairsMatchedTotal.Add(float64(len(pairs)))
	MatchDurationSeconds.Observe(time.Since(start).Seconds())

	return pairs
}
