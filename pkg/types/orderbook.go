package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// BookMessage represents a message from the venue A market WebSocket.
type BookMessage struct {
	EventType string       `json:"event_type"` // "book", "price_change", "last_trade_price"
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Price     string       `json:"price,omitempty"` // set on price_change
	Timestamp int64        `json:"-"`               // Parsed from string via UnmarshalJSON
	Hash      string       `json:"hash,omitempty"`
	Bids      []PriceLevel `json:"bids,omitempty"`
	Asks      []PriceLevel `json:"asks,omitempty"`
}

// UnmarshalJSON custom unmarshaler to handle string timestamp.
func (b *BookMessage) UnmarshalJSON(data []byte) error {
	type Alias BookMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(b),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		timestamp, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		b.Timestamp = timestamp
	}

	return nil
}

// PriceChangeMessage is the batched price_change frame from the venue A
// market channel. One frame may carry updates for several assets.
type PriceChangeMessage struct {
	EventType    string        `json:"event_type"`
	Market       string        `json:"market"`
	Timestamp    int64         `json:"-"` // Parsed from string via UnmarshalJSON
	PriceChanges []PriceChange `json:"price_changes"`
}

// UnmarshalJSON custom unmarshaler to handle string timestamp.
func (p *PriceChangeMessage) UnmarshalJSON(data []byte) error {
	type Alias PriceChangeMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		timestamp, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		p.Timestamp = timestamp
	}

	return nil
}

// PriceChange is a single asset update inside a PriceChangeMessage.
type PriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	Hash    string `json:"hash"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// PriceLevel is a single wire-format price level. Venues quote prices and
// sizes as decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook is the wire-format two-sided book for one token. Asks ascend,
// bids descend once parsed; the walker validates before use.
type OrderBook struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// QuoteSnapshot is the cached top-of-book view for one (venue, token).
type QuoteSnapshot struct {
	Venue        Venue
	MarketID     string
	TokenID      string
	Side         Side
	BestBidPrice float64
	BestBidSize  float64
	BestAskPrice float64
	BestAskSize  float64
	LastUpdated  time.Time
}

// BestAskCents returns the snapshot ask as integer cents, or -1 when the
// book has no ask.
func (q QuoteSnapshot) BestAskCents() int {
	if q.BestAskPrice <= 0 {
		return -1
	}

	return DecimalToCents(q.BestAskPrice)
}
