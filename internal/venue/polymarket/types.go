package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// GammaMarket is one market row from the Gamma catalog API. Outcomes,
// token IDs and prices arrive as JSON-encoded string arrays; unmarshaling
// zips them into Tokens.
type GammaMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	ConditionID   string    `json:"conditionId"`
	Closed        bool      `json:"closed"`
	Active        bool      `json:"active"`
	Tokens        []Token   `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	EndDate       time.Time `json:"endDate"`
	Volume24hr    float64   `json:"volume24hr"`
	Outcomes      string    `json:"outcomes"`      // JSON string: "[\"Yes\", \"No\"]"
	ClobTokens    string    `json:"clobTokenIds"`  // JSON string: "[\"token1\", \"token2\"]"
	OutcomePrices string    `json:"outcomePrices"` // JSON string: "[\"0.45\", \"0.55\"]"
}

// UnmarshalJSON zips outcomes, clobTokenIds and outcomePrices into Tokens.
func (m *GammaMarket) UnmarshalJSON(data []byte) error {
	type Alias GammaMarket
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if m.Outcomes == "" || m.ClobTokens == "" {
		return nil
	}

	var outcomes, tokenIDs, prices []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(m.ClobTokens), &tokenIDs); err != nil {
		return nil
	}
	// Prices are optional on some catalog rows.
	_ = json.Unmarshal([]byte(m.OutcomePrices), &prices)

	m.Tokens = make([]Token, 0, len(outcomes))
	for i, outcome := range outcomes {
		if i >= len(tokenIDs) {
			break
		}

		token := Token{
			TokenID: tokenIDs[i],
			Outcome: outcome,
		}
		if i < len(prices) {
			if p, err := strconv.ParseFloat(prices[i], 64); err == nil {
				token.Price = p
			}
		}

		m.Tokens = append(m.Tokens, token)
	}

	return nil
}

// Token is one outcome token of a market.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price,omitempty"`
}

// TokenByOutcome returns the token whose outcome label matches,
// case-insensitively.
func (m *GammaMarket) TokenByOutcome(outcome string) *Token {
	for i := range m.Tokens {
		if strings.EqualFold(m.Tokens[i].Outcome, outcome) {
			return &m.Tokens[i]
		}
	}

	return nil
}

// IsBinary reports whether the market has exactly a Yes and a No token.
func (m *GammaMarket) IsBinary() bool {
	return len(m.Tokens) == 2 &&
		m.TokenByOutcome("Yes") != nil &&
		m.TokenByOutcome("No") != nil
}

// ToOutcome converts the catalog row to the canonical cross-venue form.
// Returns false for non-binary markets and rows without usable prices.
func (m *GammaMarket) ToOutcome() (types.Outcome, bool) {
	if !m.IsBinary() {
		return types.Outcome{}, false
	}

	yes := m.TokenByOutcome("Yes")
	no := m.TokenByOutcome("No")

	marketID := m.ConditionID
	if marketID == "" {
		marketID = m.Slug
	}

	out := types.Outcome{
		Venue:         types.VenueA,
		MarketID:      marketID,
		Title:         m.Question,
		YesID:         yes.TokenID,
		NoID:          no.TokenID,
		YesPriceCents: types.DecimalToCents(yes.Price),
		NoPriceCents:  types.DecimalToCents(no.Price),
		VolumeUSD:     m.Volume24hr,
		CloseTime:     m.EndDate,
	}

	if yes.Price <= 0 || no.Price <= 0 {
		return out, false
	}

	return out, true
}

// MarketsPage is one aggregated catalog fetch.
type MarketsPage struct {
	Data   []GammaMarket
	Count  int
	Limit  int
	Offset int
}
