package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/arbitrage"
	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/orchestrator"
)

// APIHandler serves the read-only engine state: tracked pairs, recent
// opportunities, open positions and the execution audit log.
type APIHandler struct {
	engine   *orchestrator.Service
	executor *execution.Executor
	logger   *zap.Logger
}

func newAPIHandler(engine *orchestrator.Service, executor *execution.Executor, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		engine:   engine,
		executor: executor,
		logger:   logger,
	}
}

// PairView is one matched pair on the wire.
type PairView struct {
	Title      string  `json:"title"`
	MarketIDA  string  `json:"market_id_a"`
	MarketIDB  string  `json:"market_id_b"`
	YesACents  int     `json:"yes_a_cents"`
	NoACents   int     `json:"no_a_cents"`
	YesBCents  int     `json:"yes_b_cents"`
	NoBCents   int     `json:"no_b_cents"`
	Similarity float64 `json:"similarity"`
}

// OpportunityView is one detected opportunity on the wire.
type OpportunityView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Strategy         string    `json:"strategy"`
	SideA            string    `json:"side_a"`
	SideB            string    `json:"side_b"`
	PriceACents      int       `json:"price_a_cents"`
	PriceBCents      int       `json:"price_b_cents"`
	GrossSpreadCents int       `json:"gross_spread_cents"`
	NetProfitCents   int       `json:"net_profit_cents"`
	TotalCostCents   int       `json:"total_cost_cents"`
	DetectedAt       time.Time `json:"detected_at"`
}

// PositionView is one open position on the wire.
type PositionView struct {
	ID               string    `json:"id"`
	Market           string    `json:"market"`
	Strategy         string    `json:"strategy"`
	Contracts        int       `json:"contracts"`
	EntryPriceACents int       `json:"entry_price_a_cents"`
	EntryPriceBCents int       `json:"entry_price_b_cents"`
	ExpectedNetCents int       `json:"expected_net_cents"`
	EntryTime        time.Time `json:"entry_time"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandlePairs handles GET /api/pairs.
func (h *APIHandler) HandlePairs(w http.ResponseWriter, _ *http.Request) {
	pairs := h.engine.Pairs()

	out := make([]PairView, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, PairView{
			Title:      p.A.Title,
			MarketIDA:  p.A.MarketID,
			MarketIDB:  p.B.MarketID,
			YesACents:  p.A.YesPriceCents,
			NoACents:   p.A.NoPriceCents,
			YesBCents:  p.B.YesPriceCents,
			NoBCents:   p.B.NoPriceCents,
			Similarity: p.Similarity,
		})
	}

	h.writeJSON(w, out)
}

// HandleOpportunities handles GET /api/opportunities, newest first.
func (h *APIHandler) HandleOpportunities(w http.ResponseWriter, _ *http.Request) {
	opps := h.engine.Opportunities()

	out := make([]OpportunityView, 0, len(opps))
	for _, o := range opps {
		out = append(out, opportunityView(o))
	}

	h.writeJSON(w, out)
}

// HandlePositions handles GET /api/positions, cross-venue position first.
func (h *APIHandler) HandlePositions(w http.ResponseWriter, _ *http.Request) {
	positions := h.engine.Ledger().All()

	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, PositionView{
			ID:               p.ID,
			Market:           p.Opportunity.Name,
			Strategy:         string(p.Opportunity.Strategy),
			Contracts:        p.SharesA,
			EntryPriceACents: p.EntryPriceACents,
			EntryPriceBCents: p.EntryPriceBCents,
			ExpectedNetCents: p.ExpectedNetCents,
			EntryTime:        p.EntryTime,
		})
	}

	h.writeJSON(w, out)
}

// HandleAudit handles GET /api/audit: the execution decision ring, oldest
// first.
func (h *APIHandler) HandleAudit(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.executor.Audit().Entries())
}

// HandleStats handles GET /api/stats.
func (h *APIHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.executor.Stats())
}

func opportunityView(o *arbitrage.Opportunity) OpportunityView {
	return OpportunityView{
		ID:               o.ID,
		Name:             o.Name,
		Strategy:         string(o.Strategy),
		SideA:            string(o.SideA),
		SideB:            string(o.SideB),
		PriceACents:      o.PriceACents,
		PriceBCents:      o.PriceBCents,
		GrossSpreadCents: o.GrossSpreadCents,
		NetProfitCents:   o.NetProfitCents,
		TotalCostCents:   o.TotalCostCents,
		DetectedAt:       o.DetectedAt,
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
