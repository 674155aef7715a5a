package kalshi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// apiPrefix is the venue B REST path prefix. Signatures cover the full
// path including this prefix.
const apiPrefix = "/trade-api/v2"

// Client talks to the venue B REST API. Reads and trading both require a
// signer; without one the client degrades to ErrNotConfigured on every
// call that needs auth.
type Client struct {
	baseURL    string
	signer     *Signer
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Config holds venue B client configuration.
type Config struct {
	BaseURL        string
	APIKeyID       string
	PrivateKeyPEM  string // inline PEM, wins over the path
	PrivateKeyPath string
	// RequestsPerSecond caps outbound REST calls. Zero means 10 rps.
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewClient creates a venue B client. Missing credentials produce a
// read-disabled client rather than an error; a present-but-malformed key
// is an error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:  cfg.Logger,
	}

	if cfg.APIKeyID != "" && (cfg.PrivateKeyPEM != "" || cfg.PrivateKeyPath != "") {
		key, err := LoadPrivateKey(cfg.PrivateKeyPEM, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load venue B private key: %w", err)
		}
		c.signer = NewSigner(cfg.APIKeyID, key)
	}

	return c, nil
}

// CanTrade reports whether signed requests are possible.
func (c *Client) CanTrade() bool {
	return c.signer != nil
}

// FetchOpenMarkets fetches open markets and converts them to canonical
// outcomes, dropping rows without a two-sided quote.
func (c *Client) FetchOpenMarkets(ctx context.Context, limit int) ([]types.Outcome, error) {
	markets, err := c.FetchMarkets(ctx, limit, "open")
	if err != nil {
		return nil, err
	}

	outcomes := make([]types.Outcome, 0, len(markets))
	for i := range markets {
		outcome, ok := markets[i].ToOutcome()
		if !ok {
			continue
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// FetchMarkets fetches raw market rows, following cursors until the limit
// is met. limit == 0 follows cursors to the end.
func (c *Client) FetchMarkets(ctx context.Context, limit int, status string) ([]Market, error) {
	var all []Market
	cursor := ""

	for {
		params := url.Values{}
		if status != "" {
			params.Add("status", status)
		}
		pageLimit := 200
		if limit > 0 && limit-len(all) < pageLimit {
			pageLimit = limit - len(all)
		}
		params.Add("limit", strconv.Itoa(pageLimit))
		if cursor != "" {
			params.Add("cursor", cursor)
		}

		path := apiPrefix + "/markets?" + params.Encode()

		var page marketsResponse
		err := c.do(ctx, http.MethodGet, path, nil, &page, "markets")
		if err != nil {
			return nil, err
		}

		all = append(all, page.Markets...)

		if page.Cursor == "" || len(page.Markets) == 0 {
			break
		}
		if limit > 0 && len(all) >= limit {
			break
		}

		cursor = page.Cursor
	}

	return all, nil
}

// FetchMarket fetches one market row by ticker.
func (c *Client) FetchMarket(ctx context.Context, ticker string) (*Market, error) {
	path := apiPrefix + "/markets/" + url.PathEscape(ticker)

	var resp marketResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp, "market")
	if err != nil {
		return nil, err
	}

	return &resp.Market, nil
}

// FetchBook fetches the book for one ticker and returns the requested
// side's view in wire format. The venue quotes yes bids and no bids only;
// the ask ladder is synthesized from the complement side's bids: a NO bid
// at p sells YES at 100−p.
func (c *Client) FetchBook(ctx context.Context, ticker string, side types.Side) (*types.OrderBook, error) {
	path := apiPrefix + "/markets/" + url.PathEscape(ticker) + "/orderbook"

	var resp orderbookResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp, "orderbook")
	if err != nil {
		return nil, err
	}

	var sameBids, complementBids bookLevels
	if side == types.SideYes {
		sameBids, complementBids = resp.OrderBook.Yes, resp.OrderBook.No
	} else {
		sameBids, complementBids = resp.OrderBook.No, resp.OrderBook.Yes
	}

	book := &types.OrderBook{
		Bids: levelsToWire(sameBids, false, true),
		Asks: levelsToWire(complementBids, true, false),
	}

	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, types.ErrNoOrderbook)
	}

	return book, nil
}

// levelsToWire converts [price cents, count] pairs to decimal-string
// levels. complement flips each price to 100−p (synthetic asks);
// descending controls the output sort.
func levelsToWire(levels bookLevels, complement, descending bool) []types.PriceLevel {
	type level struct {
		price int
		count int
	}

	parsed := make([]level, 0, len(levels))
	for _, lvl := range levels {
		if len(lvl) < 2 || lvl[1] <= 0 {
			continue
		}

		price := lvl[0]
		if complement {
			price = 100 - price
		}
		if price <= 0 || price >= 100 {
			continue
		}

		parsed = append(parsed, level{price: price, count: lvl[1]})
	}

	sort.Slice(parsed, func(i, j int) bool {
		if descending {
			return parsed[i].price > parsed[j].price
		}
		return parsed[i].price < parsed[j].price
	})

	out := make([]types.PriceLevel, 0, len(parsed))
	for _, lvl := range parsed {
		out = append(out, types.PriceLevel{
			Price: strconv.FormatFloat(float64(lvl.price)/100.0, 'f', 2, 64),
			Size:  strconv.Itoa(lvl.count),
		})
	}

	return out
}

// PlaceOrder submits one limit order. The price field matches the side:
// yes_price for YES, no_price for NO, never both.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	if !c.CanTrade() {
		return nil, types.ErrNotConfigured
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	payload := orderPayload{
		Ticker:        req.MarketID,
		ClientOrderID: clientOrderID,
		Side:          sideString(req.Side),
		Action:        actionString(req.Action),
		Count:         req.Contracts,
		Type:          "limit",
	}

	price := req.PriceCents
	if req.Side == types.SideYes {
		payload.YesPrice = &price
	} else {
		payload.NoPrice = &price
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	c.logger.Info("placing-venue-b-order",
		zap.String("ticker", req.MarketID),
		zap.String("side", string(req.Side)),
		zap.Int("price-cents", req.PriceCents),
		zap.Int("contracts", req.Contracts),
		zap.String("client-order-id", clientOrderID))

	var resp orderResponse
	err = c.do(ctx, http.MethodPost, apiPrefix+"/portfolio/orders", body, &resp, "place_order")
	if err != nil {
		var orderErr *types.OrderError
		if errors.As(err, &orderErr) {
			orderErr.Side = req.Side
			OrdersPlacedTotal.WithLabelValues("rejected").Inc()
			return nil, orderErr
		}
		OrdersPlacedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	OrdersPlacedTotal.WithLabelValues("ok").Inc()

	return &types.OrderConfirmation{
		Venue:    types.VenueB,
		OrderID:  resp.Order.OrderID,
		Status:   resp.Order.Status,
		Filled:   resp.Order.InitialCount - resp.Order.RemainingCount,
		PlacedAt: time.Now(),
	}, nil
}

// OrderStatus reads one order back for fill verification.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (*types.OrderConfirmation, error) {
	if !c.CanTrade() {
		return nil, types.ErrNotConfigured
	}

	path := apiPrefix + "/portfolio/orders/" + url.PathEscape(orderID)

	var resp orderResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp, "order_status")
	if err != nil {
		return nil, err
	}

	return &types.OrderConfirmation{
		Venue:   types.VenueB,
		OrderID: resp.Order.OrderID,
		Status:  resp.Order.Status,
		Filled:  resp.Order.InitialCount - resp.Order.RemainingCount,
	}, nil
}

// Balance returns the portfolio balance in dollars.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	if !c.CanTrade() {
		return 0, types.ErrNotConfigured
	}

	var resp balanceResponse
	err := c.do(ctx, http.MethodGet, apiPrefix+"/portfolio/balance", nil, &resp, "balance")
	if err != nil {
		return 0, err
	}

	return float64(resp.Balance) / 100.0, nil
}

// do performs one rate-limited, signed request. Signatures cover the path
// without the query string.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}, endpoint string) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.signer != nil {
		signPath := path
		if i := strings.IndexByte(signPath, '?'); i >= 0 {
			signPath = signPath[:i]
		}

		headers, err := c.signer.Headers(method, signPath)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	timer := prometheus.NewTimer(RequestDurationSeconds.WithLabelValues(endpoint))
	resp, err := c.httpClient.Do(req)
	timer.ObserveDuration()

	if err != nil {
		RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &types.OrderError{
			Venue:   types.VenueB,
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(respBody),
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func sideString(s types.Side) string {
	if s == types.SideYes {
		return "yes"
	}

	return "no"
}

func actionString(a types.Action) string {
	if a == types.ActionSell {
		return "sell"
	}

	return "buy"
}

