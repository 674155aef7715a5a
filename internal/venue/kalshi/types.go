package kalshi

import (
	"time"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// Market is one market row from the venue B markets API. Prices are
// integer cents.
type Market struct {
	Ticker    string    `json:"ticker"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Status    string    `json:"status"`
	YesBid    int       `json:"yes_bid"`
	YesAsk    int       `json:"yes_ask"`
	NoBid     int       `json:"no_bid"`
	NoAsk     int       `json:"no_ask"`
	Volume    int       `json:"volume"`
	Liquidity int       `json:"liquidity"`
	CloseTime time.Time `json:"close_time"`
	Result    string    `json:"result"`
}

// ToOutcome converts the market row to the canonical cross-venue form.
// The ticker serves as both market ID and trade identifier for either
// side. Returns false for rows without a usable two-sided quote.
func (m *Market) ToOutcome() (types.Outcome, bool) {
	out := types.Outcome{
		Venue:         types.VenueB,
		MarketID:      m.Ticker,
		Title:         m.Title,
		YesID:         m.Ticker,
		NoID:          m.Ticker,
		YesPriceCents: m.YesAsk,
		NoPriceCents:  m.NoAsk,
		VolumeUSD:     float64(m.Volume),
		CloseTime:     m.CloseTime,
	}

	if m.YesAsk <= 0 || m.NoAsk <= 0 {
		return out, false
	}

	return out, true
}

// marketsResponse is the GET /markets page shape.
type marketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// marketResponse is the GET /markets/{ticker} shape.
type marketResponse struct {
	Market Market `json:"market"`
}

// bookLevels is the [price, count] pair array of one book side.
type bookLevels [][]int

// orderbookResponse is the GET /markets/{ticker}/orderbook shape. The API
// returns yes bids and no bids only; ask ladders are synthesized from the
// complement side.
type orderbookResponse struct {
	OrderBook struct {
		Yes bookLevels `json:"yes"`
		No  bookLevels `json:"no"`
	} `json:"orderbook"`
}

// orderPayload is the POST /portfolio/orders body. Exactly one of
// YesPrice/NoPrice is set, matching the side.
type orderPayload struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	YesPrice      *int   `json:"yes_price,omitempty"`
	NoPrice       *int   `json:"no_price,omitempty"`
}

// orderResponse wraps one order in create and status responses.
type orderResponse struct {
	Order struct {
		OrderID        string `json:"order_id"`
		Status         string `json:"status"`
		InitialCount   int    `json:"initial_count"`
		RemainingCount int    `json:"remaining_count"`
	} `json:"order"`
}

// balanceResponse is the GET /portfolio/balance shape; balance is cents.
type balanceResponse struct {
	Balance int64 `json:"balance"`
}
