package matching

import "strings"

// Blend weights for the combined score. Jaccard dominates because market
// titles share long literal fragments; the edit component catches
// reorderings and formatting drift. These are design constants, not config.
const (
	jaccardWeight = 0.6
	editWeight    = 0.4
)

// JaccardSimilarity returns |intersection| / |union| over whitespace-split
// tokens of the lowercased inputs. Two token-less strings score 1.
func JaccardSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}

	union := len(tokensA) + len(tokensB) - intersection

	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}

	return set
}

// EditSimilarity returns 1 − distance/max(len) over the lowercased inputs,
// where distance is classic Levenshtein over runes.
func EditSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes edit distance with a rolling two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			best := deletion
			if insertion < best {
				best = insertion
			}
			if substitution < best {
				best = substitution
			}

			curr[j] = best
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// CombinedSimilarity blends token and edit similarity with the package
// weights. Callers that need the Jaccard component for tie-breaking should
// use ScoreTitles instead of calling this twice.
func CombinedSimilarity(a, b string) float64 {
	combined, _ := ScoreTitles(a, b)
	return combined
}

// ScoreTitles returns the blended score and the Jaccard component used as a
// tie-breaker between equal blends.
func ScoreTitles(a, b string) (combined, jaccard float64) {
	jaccard = JaccardSimilarity(a, b)
	edit := EditSimilarity(a, b)

	return jaccardWeight*jaccard + editWeight*edit, jaccard
}
