package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PairsMatchedTotal tracks pairs produced across matching rounds.
	PairsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_matching_pairs_matched_total",
		Help: "Total number of cross-venue pairs produced by the matcher",
	})

	// CandidatesScoredTotal tracks candidate comparisons evaluated.
	CandidatesScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_matching_candidates_scored_total",
		Help: "Total number of candidate title comparisons scored",
	})

	// UnmatchedOutcomesTotal tracks A-side outcomes with no pairing above threshold.
	UnmatchedOutcomesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_matching_unmatched_outcomes_total",
		Help: "Total number of venue A outcomes left unmatched",
	})

	// MatchDurationSeconds tracks matching round latency.
	MatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_matching_duration_seconds",
		Help:    "Duration of a full matching round",
		Buckets: prometheus.DefBuckets,
	})
)
