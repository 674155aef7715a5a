package matching

import (
	"testing"

	"github.com/mselser95/crossmarket-arb/pkg/types"
	"go.uber.org/zap"
)

func aOutcome(id, title string) types.Outcome {
	return types.Outcome{Venue: types.VenueA, MarketID: id, Title: title}
}

func bOutcome(id, title string) types.Outcome {
	return types.Outcome{Venue: types.VenueB, MarketID: id, Title: title}
}

func TestMatch_PairsIdenticalTitles(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{
		aOutcome("a1", "Bitcoin above 100k at 3:15pm ET"),
		aOutcome("a2", "Ethereum above 4000 at 3:15pm ET"),
	}
	bs := []types.Outcome{
		bOutcome("b1", "Ethereum above 4000 at 3:15pm ET"),
		bOutcome("b2", "Bitcoin above 100k at 3:15pm ET"),
	}

	pairs := m.Match(as, bs)

	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}

	for _, p := range pairs {
		if p.A.Title != p.B.Title {
			t.Errorf("paired different titles: %q vs %q", p.A.Title, p.B.Title)
		}
		if p.Similarity != 1.0 {
			t.Errorf("similarity = %v, want 1.0 for identical titles", p.Similarity)
		}
	}
}

func TestMatch_OneToOne(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	// Two A outcomes close to the same single B outcome: only one may take it.
	as := []types.Outcome{
		aOutcome("a1", "bitcoin above 100k"),
		aOutcome("a2", "bitcoin above 100k"),
	}
	bs := []types.Outcome{
		bOutcome("b1", "bitcoin above 100k"),
	}

	pairs := m.Match(as, bs)

	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1 (B side must not be consumed twice)", len(pairs))
	}

	seenA := make(map[string]bool)
	seenB := make(map[string]bool)
	for _, p := range pairs {
		if seenA[p.A.MarketID] {
			t.Errorf("A outcome %s appears twice", p.A.MarketID)
		}
		if seenB[p.B.MarketID] {
			t.Errorf("B outcome %s appears twice", p.B.MarketID)
		}
		seenA[p.A.MarketID] = true
		seenB[p.B.MarketID] = true
	}
}

func TestMatch_BelowThreshold(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{aOutcome("a1", "alpha event")}
	// jaccard 2/3, edit well under 1: combined lands below 0.7.
	bs := []types.Outcome{bOutcome("b1", "alpha event extra")}

	pairs := m.Match(as, bs)

	if len(pairs) != 0 {
		t.Fatalf("len(pairs) = %d, want 0 for sub-threshold similarity", len(pairs))
	}
}

func TestMatch_AllPairsAboveThreshold(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{
		aOutcome("a1", "Bitcoin above 100k at 3:15pm"),
		aOutcome("a2", "completely unrelated question"),
	}
	bs := []types.Outcome{
		bOutcome("b1", "Bitcoin above 100k at 3:15pm"),
		bOutcome("b2", "fed cuts rates in march"),
	}

	pairs := m.Match(as, bs)

	for _, p := range pairs {
		if p.Similarity < 0.7 {
			t.Errorf("pair %s/%s similarity %v below threshold", p.A.MarketID, p.B.MarketID, p.Similarity)
		}
	}
}

func TestMatch_DeterministicAcrossInputOrder(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{
		aOutcome("a1", "Bitcoin above 100k at 3:15pm ET"),
		aOutcome("a2", "Ethereum above 4000 at 3:15pm ET"),
		aOutcome("a3", "Solana above 300 at 3:15pm ET"),
	}
	shuffled := []types.Outcome{as[2], as[0], as[1]}

	bs := []types.Outcome{
		bOutcome("b1", "Solana above 300 at 3:15pm ET"),
		bOutcome("b2", "Bitcoin above 100k at 3:15pm ET"),
		bOutcome("b3", "Ethereum above 4000 at 3:15pm ET"),
	}

	first := m.Match(as, bs)
	second := m.Match(shuffled, bs)

	if len(first) != len(second) {
		t.Fatalf("pair counts differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].A.MarketID != second[i].A.MarketID || first[i].B.MarketID != second[i].B.MarketID {
			t.Errorf("pair %d differs across input orders: %s/%s vs %s/%s",
				i, first[i].A.MarketID, first[i].B.MarketID, second[i].A.MarketID, second[i].B.MarketID)
		}
	}
}

func TestMatch_Idempotent(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{
		aOutcome("a1", "Bitcoin above 100k at 3:15pm ET"),
		aOutcome("a2", "Ethereum above 4000 at 3:15pm ET"),
	}
	bs := []types.Outcome{
		bOutcome("b1", "Ethereum above 4000 at 3:15pm ET"),
		bOutcome("b2", "Bitcoin above 100k at 3:15pm ET"),
	}

	first := m.Match(as, bs)
	second := m.Match(as, bs)

	if len(first) != len(second) {
		t.Fatalf("pair counts differ on identical inputs: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Errorf("pair %d differs: %s vs %s", i, first[i].Key(), second[i].Key())
		}
	}
}

func TestMatch_TieResolvesToFirstCandidate(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	as := []types.Outcome{aOutcome("a1", "bitcoin above 100k")}
	bs := []types.Outcome{
		bOutcome("b1", "bitcoin above 100k"),
		bOutcome("b2", "bitcoin above 100k"),
	}

	pairs := m.Match(as, bs)

	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1", len(pairs))
	}
	if pairs[0].B.MarketID != "b1" {
		t.Errorf("tie resolved to %s, want first candidate b1", pairs[0].B.MarketID)
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	m := New(Config{Threshold: 0.7, Logger: zap.NewNop()})

	if pairs := m.Match(nil, nil); len(pairs) != 0 {
		t.Errorf("Match(nil, nil) produced %d pairs, want 0", len(pairs))
	}

	if pairs := m.Match([]types.Outcome{aOutcome("a1", "x")}, nil); len(pairs) != 0 {
		t.Errorf("Match with empty B produced %d pairs, want 0", len(pairs))
	}
}

func TestNew_DefaultThreshold(t *testing.T) {
	m := New(Config{Logger: zap.NewNop()})

	if m.config.Threshold != DefaultThreshold {
		t.Errorf("default threshold = %v, want %v", m.config.Threshold, DefaultThreshold)
	}
}
