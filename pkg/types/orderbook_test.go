package types

import (
	"encoding/json"
	"testing"
)

func TestBookMessage_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		checkFunc func(*testing.T, *BookMessage)
	}{
		{
			name: "book_event_with_levels",
			input: `{
				"event_type": "book",
				"asset_id": "token-yes",
				"market": "0xabc123",
				"timestamp": "1757908892351",
				"bids": [{"price": "0.48", "size": "100"}],
				"asks": [{"price": "0.52", "size": "80"}, {"price": "0.53", "size": "40"}]
			}`,
			checkFunc: func(t *testing.T, msg *BookMessage) {
				if msg.EventType != "book" {
					t.Errorf("EventType = %q, want %q", msg.EventType, "book")
				}
				if msg.AssetID != "token-yes" {
					t.Errorf("AssetID = %q, want %q", msg.AssetID, "token-yes")
				}
				if msg.Timestamp != 1757908892351 {
					t.Errorf("Timestamp = %d, want 1757908892351", msg.Timestamp)
				}
				if len(msg.Asks) != 2 {
					t.Fatalf("len(Asks) = %d, want 2", len(msg.Asks))
				}
				if msg.Asks[0].Price != "0.52" || msg.Asks[0].Size != "80" {
					t.Errorf("Asks[0] = %+v, want price 0.52 size 80", msg.Asks[0])
				}
			},
		},
		{
			name: "price_change_with_price_field",
			input: `{
				"event_type": "price_change",
				"asset_id": "token-no",
				"market": "0xdef",
				"price": "0.61",
				"timestamp": "1700000000000"
			}`,
			checkFunc: func(t *testing.T, msg *BookMessage) {
				if msg.EventType != "price_change" {
					t.Errorf("EventType = %q, want %q", msg.EventType, "price_change")
				}
				if msg.Price != "0.61" {
					t.Errorf("Price = %q, want %q", msg.Price, "0.61")
				}
			},
		},
		{
			name:  "missing_timestamp_defaults_zero",
			input: `{"event_type": "book", "asset_id": "t", "market": "m"}`,
			checkFunc: func(t *testing.T, msg *BookMessage) {
				if msg.Timestamp != 0 {
					t.Errorf("Timestamp = %d, want 0", msg.Timestamp)
				}
			},
		},
		{
			name:    "non_numeric_timestamp",
			input:   `{"event_type": "book", "asset_id": "t", "timestamp": "not_a_number"}`,
			wantErr: true,
		},
		{
			name:    "invalid_json",
			input:   `{"event_type": "book", "asset_id": [BROKEN}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg BookMessage
			err := json.Unmarshal([]byte(tt.input), &msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.checkFunc != nil {
				tt.checkFunc(t, &msg)
			}
		})
	}
}

func TestPriceChangeMessage_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		wantChanges int
		wantTS      int64
	}{
		{
			name: "single_asset",
			input: `{
				"event_type": "price_change",
				"market": "0xabc123",
				"timestamp": "1234567890000",
				"price_changes": [
					{"asset_id": "token1", "best_bid": "0.52", "best_ask": "0.53"}
				]
			}`,
			wantChanges: 1,
			wantTS:      1234567890000,
		},
		{
			name: "batched_assets",
			input: `{
				"event_type": "price_change",
				"market": "0xdef456",
				"timestamp": "1757908892351",
				"price_changes": [
					{"asset_id": "token1", "price": "0.5", "size": "200", "side": "BUY", "best_bid": "0.5", "best_ask": "1"},
					{"asset_id": "token2", "price": "0.5", "size": "200", "side": "SELL", "best_bid": "0", "best_ask": "0.5"}
				]
			}`,
			wantChanges: 2,
			wantTS:      1757908892351,
		},
		{
			name:        "empty_changes",
			input:       `{"event_type": "price_change", "market": "m", "timestamp": "1", "price_changes": []}`,
			wantChanges: 0,
			wantTS:      1,
		},
		{
			name:    "bad_timestamp",
			input:   `{"event_type": "price_change", "market": "m", "timestamp": "zzz", "price_changes": []}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg PriceChangeMessage
			err := json.Unmarshal([]byte(tt.input), &msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(msg.PriceChanges) != tt.wantChanges {
				t.Errorf("len(PriceChanges) = %d, want %d", len(msg.PriceChanges), tt.wantChanges)
			}
			if msg.Timestamp != tt.wantTS {
				t.Errorf("Timestamp = %d, want %d", msg.Timestamp, tt.wantTS)
			}
		})
	}
}

func TestQuoteSnapshot_BestAskCents(t *testing.T) {
	tests := []struct {
		name string
		ask  float64
		want int
	}{
		{name: "mid_price", ask: 0.52, want: 52},
		{name: "rounds_to_nearest", ask: 0.526, want: 53},
		{name: "no_ask", ask: 0, want: -1},
		{name: "negative_treated_as_missing", ask: -1, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuoteSnapshot{BestAskPrice: tt.ask}
			if got := q.BestAskCents(); got != tt.want {
				t.Errorf("BestAskCents() = %d, want %d", got, tt.want)
			}
		})
	}
}
