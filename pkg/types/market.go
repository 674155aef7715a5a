package types

import "time"

// Outcome is the canonical per-venue view of one binary market. Venue
// payloads are parsed into this form once at the client boundary; everything
// downstream (matching, evaluation, execution) consumes only Outcome.
type Outcome struct {
	Venue         Venue
	MarketID      string // conditionId / slug on venue A, ticker on venue B
	Title         string
	YesID         string // YES token ID on venue A, ticker on venue B
	NoID          string // NO token ID on venue A, ticker on venue B
	YesPriceCents int
	NoPriceCents  int
	VolumeUSD     float64
	CloseTime     time.Time
}

// WellFormed reports whether both quoted prices are inside the contract
// range. YES+NO is allowed to drift from 100; the vigorish is the signal,
// not an error.
func (o Outcome) WellFormed() bool {
	return ValidCents(o.YesPriceCents) && ValidCents(o.NoPriceCents)
}

// PriceForSide returns the quoted cent price of the requested side.
func (o Outcome) PriceForSide(side Side) int {
	if side == SideYes {
		return o.YesPriceCents
	}

	return o.NoPriceCents
}

// IDForSide returns the venue identifier used to trade the requested side.
func (o Outcome) IDForSide(side Side) string {
	if side == SideYes {
		return o.YesID
	}

	return o.NoID
}

// MatchedPair links one venue-A outcome with one venue-B outcome. Pairs are
// one-to-one within a matching round: no outcome appears twice.
type MatchedPair struct {
	A          Outcome
	B          Outcome
	Similarity float64
	MatchedAt  time.Time
}

// Key returns a stable identifier for the pair, used for cooldown tracking
// and position bookkeeping.
func (p MatchedPair) Key() string {
	return string(VenueA) + ":" + p.A.MarketID + "|" + string(VenueB) + ":" + p.B.MarketID
}
