package feed

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// Cache holds the last-writer-wins top-of-book view for every tracked
// (venue, token). Venue A quotes stream in from the WebSocket channels;
// the venue B poller writes through SetQuote.
type Cache struct {
	quotes       map[string]*types.QuoteSnapshot
	mu           sync.RWMutex
	logger       *zap.Logger
	books        <-chan *types.BookMessage
	priceChanges <-chan *types.PriceChangeMessage
	updateChan   chan *types.QuoteSnapshot
	ctx          context.Context
	wg           sync.WaitGroup
}

// Config holds quote cache configuration.
type Config struct {
	Logger       *zap.Logger
	Books        <-chan *types.BookMessage
	PriceChanges <-chan *types.PriceChangeMessage
	UpdateBuffer int
}

// New creates a quote cache.
func New(cfg Config) *Cache {
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = 10000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Cache{
		quotes:       make(map[string]*types.QuoteSnapshot),
		logger:       cfg.Logger,
		books:        cfg.Books,
		priceChanges: cfg.PriceChanges,
		updateChan:   make(chan *types.QuoteSnapshot, cfg.UpdateBuffer),
	}
}

// Start begins consuming the stream channels.
func (c *Cache) Start(ctx context.Context) error {
	c.ctx = ctx
	c.logger.Info("quote-cache-starting")

	c.wg.Add(1)
	go c.consumeLoop()

	return nil
}

// consumeLoop applies stream messages until the context is cancelled.
func (c *Cache) consumeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("quote-cache-stopping")
			return
		case msg, ok := <-c.books:
			if !ok {
				c.logger.Info("book-channel-closed")
				return
			}
			c.handleBook(msg)
		case msg, ok := <-c.priceChanges:
			if !ok {
				c.logger.Info("price-change-channel-closed")
				return
			}
			c.handlePriceChange(msg)
		}
	}
}

// handleBook replaces the cached quote with a full snapshot.
func (c *Cache) handleBook(msg *types.BookMessage) {
	timer := prometheus.NewTimer(UpdateDurationSeconds)
	defer timer.ObserveDuration()

	UpdatesTotal.WithLabelValues("book").Inc()

	bidPrice, bidSize, hasBid := bestBid(msg.Bids)
	askPrice, askSize, hasAsk := bestAsk(msg.Asks)

	if !hasBid && !hasAsk {
		// Common for illiquid markets.
		c.logger.Debug("quote-empty", zap.String("token-id", msg.AssetID))
		return
	}

	snap := &types.QuoteSnapshot{
		Venue:        types.VenueA,
		MarketID:     msg.Market,
		TokenID:      msg.AssetID,
		BestBidPrice: bidPrice,
		BestBidSize:  bidSize,
		BestAskPrice: askPrice,
		BestAskSize:  askSize,
		LastUpdated:  time.Now(),
	}

	c.mu.Lock()
	c.quotes[quoteKey(types.VenueA, msg.AssetID)] = snap
	QuotesTracked.Set(float64(len(c.quotes)))
	c.mu.Unlock()

	c.logger.Debug("quote-snapshot-updated",
		zap.String("token-id", msg.AssetID),
		zap.Float64("best-bid", bidPrice),
		zap.Float64("best-ask", askPrice))

	c.notify(snap)
}

// handlePriceChange merges batched incremental updates into cached quotes.
func (c *Cache) handlePriceChange(msg *types.PriceChangeMessage) {
	timer := prometheus.NewTimer(UpdateDurationSeconds)
	defer timer.ObserveDuration()

	for i := range msg.PriceChanges {
		UpdatesTotal.WithLabelValues("price_change").Inc()

		pc := &msg.PriceChanges[i]
		key := quoteKey(types.VenueA, pc.AssetID)

		c.mu.Lock()
		snap, exists := c.quotes[key]
		if !exists {
			snap = &types.QuoteSnapshot{
				Venue:    types.VenueA,
				MarketID: msg.Market,
				TokenID:  pc.AssetID,
			}
			c.quotes[key] = snap
			QuotesTracked.Set(float64(len(c.quotes)))
		}

		applyPriceChange(snap, pc)
		snap.LastUpdated = time.Now()
		snapCopy := *snap
		c.mu.Unlock()

		c.logger.Debug("quote-price-updated",
			zap.String("token-id", pc.AssetID),
			zap.Float64("best-bid", snapCopy.BestBidPrice),
			zap.Float64("best-ask", snapCopy.BestAskPrice))

		c.notify(&snapCopy)
	}
}

// applyPriceChange moves the cached top-of-book to the levels named by one
// price_change entry. The entry's size describes the changed level; it only
// replaces a cached size when that level is the new top of its side.
func applyPriceChange(snap *types.QuoteSnapshot, pc *types.PriceChange) {
	if bid, err := strconv.ParseFloat(pc.BestBid, 64); err == nil && bid > 0 {
		snap.BestBidPrice = bid
	}
	if ask, err := strconv.ParseFloat(pc.BestAsk, 64); err == nil && ask > 0 {
		snap.BestAskPrice = ask
	}

	size, err := strconv.ParseFloat(pc.Size, 64)
	if err != nil || size <= 0 {
		return
	}

	switch strings.ToUpper(pc.Side) {
	case "BUY":
		if pc.Price == pc.BestBid {
			snap.BestBidSize = size
		}
	case "SELL":
		if pc.Price == pc.BestAsk {
			snap.BestAskSize = size
		}
	}
}

// SetQuote stores a snapshot directly. The venue B poller and REST
// backfills use this path; the newest write always wins.
func (c *Cache) SetQuote(q types.QuoteSnapshot) {
	q.LastUpdated = time.Now()

	c.mu.Lock()
	snap := q
	c.quotes[quoteKey(q.Venue, q.TokenID)] = &snap
	QuotesTracked.Set(float64(len(c.quotes)))
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues("poll").Inc()

	c.notify(&snap)
}

// Quote returns the cached snapshot for one (venue, token).
func (c *Cache) Quote(venue types.Venue, tokenID string) (types.QuoteSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, exists := c.quotes[quoteKey(venue, tokenID)]
	if !exists {
		return types.QuoteSnapshot{}, false
	}

	return *snap, true
}

// VenueQuotes returns copies of every cached snapshot for a venue.
func (c *Cache) VenueQuotes(venue types.Venue) []types.QuoteSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.QuoteSnapshot, 0, len(c.quotes))
	for _, snap := range c.quotes {
		if snap.Venue == venue {
			out = append(out, *snap)
		}
	}

	return out
}

// Forget drops the cached quote for a token. Called when a market rotates
// out of the tracked set.
func (c *Cache) Forget(venue types.Venue, tokenID string) {
	c.mu.Lock()
	delete(c.quotes, quoteKey(venue, tokenID))
	QuotesTracked.Set(float64(len(c.quotes)))
	c.mu.Unlock()
}

// Updates returns the channel of quote updates. Slow consumers lose
// updates rather than stalling the stream.
func (c *Cache) Updates() <-chan *types.QuoteSnapshot {
	return c.updateChan
}

// notify pushes an update without blocking the consume loop.
func (c *Cache) notify(snap *types.QuoteSnapshot) {
	select {
	case c.updateChan <- snap:
	default:
		c.logger.Error("quote-update-channel-full-dropping",
			zap.String("token-id", snap.TokenID),
			zap.Int("buffer-size", cap(c.updateChan)))
		UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// Close waits for the consume loop and releases the update channel.
func (c *Cache) Close() error {
	c.logger.Info("closing-quote-cache")
	c.wg.Wait()
	close(c.updateChan)
	c.logger.Info("quote-cache-closed")

	return nil
}

// quoteKey scopes token identifiers per venue. Venue B reuses tickers as
// token IDs, so the composite key keeps the namespaces apart.
func quoteKey(venue types.Venue, tokenID string) string {
	return string(venue) + ":" + tokenID
}

// bestBid returns the highest parseable bid level.
func bestBid(levels []types.PriceLevel) (price, size float64, ok bool) {
	for _, lvl := range levels {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil || p <= 0 {
			continue
		}

		if !ok || p > price {
			s, err := strconv.ParseFloat(lvl.Size, 64)
			if err != nil {
				continue
			}
			price, size, ok = p, s, true
		}
	}

	return price, size, ok
}

// bestAsk returns the lowest parseable ask level.
func bestAsk(levels []types.PriceLevel) (price, size float64, ok bool) {
	for _, lvl := range levels {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil || p <= 0 {
			continue
		}

		if !ok || p < price {
			s, err := strconv.ParseFloat(lvl.Size, 64)
			if err != nil {
				continue
			}
			price, size, ok = p, s, true
		}
	}

	return price, size, ok
}
