package types

import "time"

// OrderRequest describes one leg the executor submits to a venue client.
// Prices are integer cents; venue clients convert to their own wire format.
type OrderRequest struct {
	Venue         Venue
	MarketID      string
	TokenID       string // YES/NO token ID on venue A, ticker on venue B
	Side          Side
	Action        Action
	PriceCents    int
	Contracts     int
	ClientOrderID string
}

// NotionalDollars returns price times size in dollars, used for the
// minimum-order check.
func (r OrderRequest) NotionalDollars() float64 {
	return CentsToDecimal(r.PriceCents) * float64(r.Contracts)
}

// OrderConfirmation is the venue-agnostic acknowledgement of a placed order.
type OrderConfirmation struct {
	Venue    Venue
	OrderID  string
	Status   string // venue status string: matched, live, resting, ...
	Filled   int    // contracts confirmed filled at acknowledgement time
	PlacedAt time.Time
}
