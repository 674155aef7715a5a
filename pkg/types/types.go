package types

import "math"

// Venue identifies one of the two trading venues.
type Venue string

const (
	VenueA Venue = "A" // on-chain CLOB venue (Polymarket-style)
	VenueB Venue = "B" // centralized venue (Kalshi-style)
)

// Side identifies one of the two complementary outcomes of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}

	return SideYes
}

// Action identifies order direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// CentsToDecimal converts an integer cent price (0-100) to a decimal price (0.0-1.0).
func CentsToDecimal(cents int) float64 {
	return float64(cents) / 100.0
}

// DecimalToCents converts a decimal price (0.0-1.0) to integer cents, rounding
// to the nearest cent. Values outside [0,1] are clamped.
func DecimalToCents(price float64) int {
	if price < 0 {
		return 0
	}

	if price > 1 {
		return 100
	}

	return int(math.Round(price * 100.0))
}

// ValidCents reports whether a cent price is inside the binary contract range.
func ValidCents(cents int) bool {
	return cents >= 0 && cents <= 100
}
