package polymarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

const (
	// maxBatchSize is the largest page the catalog API serves per request.
	maxBatchSize = 100

	// maxParallelPages bounds concurrent catalog page fetches.
	maxParallelPages = 4
)

// Client reads the venue A public surface: the Gamma market catalog and
// the CLOB order books. Order placement lives in Trader.
type Client struct {
	gammaURL   string
	clobURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientConfig holds venue A client configuration.
type ClientConfig struct {
	GammaURL string
	ClobURL  string
	// RequestsPerSecond caps outbound REST calls. Zero means 10 rps.
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewClient creates a venue A read client.
func NewClient(cfg ClientConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		gammaURL: cfg.GammaURL,
		clobURL:  cfg.ClobURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:  cfg.Logger,
	}
}

// FetchActiveMarkets fetches open markets from the catalog, highest volume
// first. limit == 0 fetches every available page sequentially; bounded
// limits above one page are fetched in parallel.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) (*MarketsPage, error) {
	if limit == 0 {
		return c.fetchAllPages(ctx, false)
	}

	if limit <= maxBatchSize {
		markets, err := c.fetchCatalogPage(ctx, limit, 0, false)
		if err != nil {
			return nil, err
		}

		return &MarketsPage{Data: markets, Count: len(markets), Limit: limit}, nil
	}

	return c.fetchParallelPages(ctx, limit, false)
}

// ActiveOutcomes fetches the open catalog and converts it to canonical
// binary outcomes.
func (c *Client) ActiveOutcomes(ctx context.Context, limit int) ([]types.Outcome, error) {
	page, err := c.FetchActiveMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}

	return page.Outcomes(), nil
}

// ClosedOutcomes fetches recently closed markets as canonical outcomes.
func (c *Client) ClosedOutcomes(ctx context.Context, limit int) ([]types.Outcome, error) {
	page, err := c.FetchClosedMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}

	return page.Outcomes(), nil
}

// FetchClosedMarkets fetches recently closed markets, used by the
// resolution watcher to spot books that should have converged.
func (c *Client) FetchClosedMarkets(ctx context.Context, limit int) (*MarketsPage, error) {
	if limit <= 0 || limit > maxBatchSize {
		limit = maxBatchSize
	}

	markets, err := c.fetchCatalogPage(ctx, limit, 0, true)
	if err != nil {
		return nil, err
	}

	return &MarketsPage{Data: markets, Count: len(markets), Limit: limit}, nil
}

// fetchParallelPages fans page fetches out over an errgroup. Page offsets
// are known up front for a bounded limit, so pages are independent.
func (c *Client) fetchParallelPages(ctx context.Context, limit int, closed bool) (*MarketsPage, error) {
	pages := (limit + maxBatchSize - 1) / maxBatchSize
	results := make([][]GammaMarket, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)

	for page := 0; page < pages; page++ {
		pageLimit := maxBatchSize
		if remaining := limit - page*maxBatchSize; remaining < maxBatchSize {
			pageLimit = remaining
		}
		offset := page * maxBatchSize

		g.Go(func() error {
			markets, err := c.fetchCatalogPage(gctx, pageLimit, offset, closed)
			if err != nil {
				return fmt.Errorf("fetch page at offset %d: %w", offset, err)
			}
			results[offset/maxBatchSize] = markets

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []GammaMarket
	for _, page := range results {
		all = append(all, page...)
	}

	// Parallel pages can land out of order relative to the catalog sort.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Volume24hr > all[j].Volume24hr
	})

	c.logger.Debug("catalog-fetched",
		zap.Int("pages", pages),
		zap.Int("markets", len(all)))

	return &MarketsPage{Data: all, Count: len(all), Limit: limit}, nil
}

// fetchAllPages walks the catalog sequentially until a short page.
func (c *Client) fetchAllPages(ctx context.Context, closed bool) (*MarketsPage, error) {
	var all []GammaMarket
	offset := 0

	for {
		markets, err := c.fetchCatalogPage(ctx, maxBatchSize, offset, closed)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		all = append(all, markets...)
		if len(markets) < maxBatchSize {
			break
		}

		offset += maxBatchSize
	}

	return &MarketsPage{Data: all, Count: len(all)}, nil
}

// fetchCatalogPage fetches a single catalog page.
func (c *Client) fetchCatalogPage(ctx context.Context, limit, offset int, closed bool) ([]GammaMarket, error) {
	params := url.Values{}
	params.Add("closed", strconv.FormatBool(closed))
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", "volume24hr")
	params.Add("ascending", "false")

	requestURL := fmt.Sprintf("%s/markets?%s", c.gammaURL, params.Encode())

	body, err := c.get(ctx, requestURL, "catalog")
	if err != nil {
		return nil, err
	}

	// The catalog returns a bare array.
	var markets []GammaMarket
	err = json.Unmarshal(body, &markets)
	if err != nil {
		return nil, fmt.Errorf("unmarshal catalog page: %w", err)
	}

	return markets, nil
}

// FetchBook fetches the full two-sided book for one token.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (*types.OrderBook, error) {
	requestURL := fmt.Sprintf("%s/book?token_id=%s", c.clobURL, url.QueryEscape(tokenID))

	body, err := c.get(ctx, requestURL, "book")
	if err != nil {
		return nil, err
	}

	var book types.OrderBook
	err = json.Unmarshal(body, &book)
	if err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}

	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return nil, fmt.Errorf("token %s: %w", tokenID, types.ErrNoOrderbook)
	}

	return &book, nil
}

// get performs a rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, requestURL, endpoint string) ([]byte, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "crossmarket-arb/1.0")

	timer := prometheus.NewTimer(RequestDurationSeconds.WithLabelValues(endpoint))
	resp, err := c.httpClient.Do(req)
	timer.ObserveDuration()

	if err != nil {
		RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// Outcomes converts a catalog page to canonical outcomes, dropping
// non-binary markets and rows without usable prices.
func (p *MarketsPage) Outcomes() []types.Outcome {
	out := make([]types.Outcome, 0, len(p.Data))
	for i := range p.Data {
		outcome, ok := p.Data[i].ToOutcome()
		if !ok {
			continue
		}

		out = append(out, outcome)
	}

	return out
}

// subscribePayload is the market-channel subscription frame.
type subscribePayload struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// SubscribeMessage builds the market-channel subscription frame for a set
// of token IDs.
func SubscribeMessage(tokenIDs []string) ([]byte, error) {
	payload := subscribePayload{
		Type:      "MARKET",
		AssetsIDs: tokenIDs,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe payload: %w", err)
	}

	return data, nil
}
