package websocket

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// PoolConfig holds WebSocket pool configuration.
type PoolConfig struct {
	Size                  int    // number of WebSocket connections
	WSUrl                 string // WebSocket URL
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int // per-connection buffer size
	Logger                *zap.Logger
}

// Pool shards token subscriptions across several WebSocket connections and
// merges their decoded streams. Venue A caps subscriptions per connection,
// so heavy market sets need more than one socket.
type Pool struct {
	cfg                PoolConfig
	managers           []*Manager
	tokenToIndex       map[string]int // token ID -> manager index
	totalSubscriptions int
	mu                 sync.RWMutex
	bookChan           chan *types.BookMessage
	changeChan         chan *types.PriceChangeMessage
	ctx                context.Context
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
	logger             *zap.Logger
}

// NewPool creates a WebSocket connection pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	mergedBuffer := cfg.Size * cfg.MessageBufferSize

	pool := &Pool{
		cfg:          cfg,
		managers:     make([]*Manager, cfg.Size),
		tokenToIndex: make(map[string]int),
		bookChan:     make(chan *types.BookMessage, mergedBuffer),
		changeChan:   make(chan *types.PriceChangeMessage, mergedBuffer),
		ctx:          ctx,
		cancel:       cancel,
		logger:       cfg.Logger,
	}

	for i := range cfg.Size {
		managerCfg := Config{
			URL:                   cfg.WSUrl,
			DialTimeout:           cfg.DialTimeout,
			PongTimeout:           cfg.PongTimeout,
			PingInterval:          cfg.PingInterval,
			ReconnectInitialDelay: cfg.ReconnectInitialDelay,
			ReconnectMaxDelay:     cfg.ReconnectMaxDelay,
			ReconnectBackoffMult:  cfg.ReconnectBackoffMult,
			MessageBufferSize:     cfg.MessageBufferSize,
			Logger:                cfg.Logger.With(zap.Int("manager-id", i)),
		}

		pool.managers[i] = New(managerCfg)
	}

	return pool
}

// Start starts all managers and the stream forwarders.
func (p *Pool) Start() error {
	p.logger.Info("websocket-pool-starting", zap.Int("pool-size", p.cfg.Size))

	errChan := make(chan error, p.cfg.Size)
	var startWg sync.WaitGroup

	for i, mgr := range p.managers {
		startWg.Add(1)
		go func(index int, manager *Manager) {
			defer startWg.Done()

			err := manager.Start()
			if err != nil {
				p.logger.Error("manager-start-failed",
					zap.Int("manager-id", index),
					zap.Error(err))
				errChan <- fmt.Errorf("manager %d start failed: %w", index, err)
			}
		}(i, mgr)
	}

	startWg.Wait()
	close(errChan)

	var startErrors []error
	for err := range errChan {
		startErrors = append(startErrors, err)
	}

	if len(startErrors) > 0 {
		return fmt.Errorf("failed to start %d managers: %v", len(startErrors), startErrors)
	}

	for i, mgr := range p.managers {
		p.wg.Add(2)
		go p.forwardBooks(i, mgr.Books())
		go p.forwardPriceChanges(i, mgr.PriceChanges())
	}

	PoolActiveConnections.Set(float64(p.cfg.Size))

	p.logger.Info("websocket-pool-started", zap.Int("active-managers", p.cfg.Size))

	return nil
}

// forwardBooks merges one manager's book stream into the pool channel.
func (p *Pool) forwardBooks(index int, in <-chan *types.BookMessage) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				p.logger.Warn("manager-book-channel-closed", zap.Int("manager-id", index))
				return
			}

			select {
			case p.bookChan <- msg:
			default:
				p.logger.Warn("pool-book-channel-full",
					zap.Int("manager-id", index),
					zap.String("asset-id", msg.AssetID))
				MessagesDroppedTotal.WithLabelValues("pool_channel_full").Inc()
			}
		}
	}
}

// forwardPriceChanges merges one manager's price change stream into the
// pool channel.
func (p *Pool) forwardPriceChanges(index int, in <-chan *types.PriceChangeMessage) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				p.logger.Warn("manager-price-change-channel-closed", zap.Int("manager-id", index))
				return
			}

			select {
			case p.changeChan <- msg:
			default:
				p.logger.Warn("pool-price-change-channel-full",
					zap.Int("manager-id", index),
					zap.String("market", msg.Market))
				MessagesDroppedTotal.WithLabelValues("pool_channel_full").Inc()
			}
		}
	}
}

// Subscribe distributes token subscriptions across managers using
// hash-based sharding.
func (p *Pool) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	tokensByManager := make(map[int][]string)
	newTokensCount := 0

	p.mu.Lock()
	for _, tokenID := range tokenIDs {
		if _, exists := p.tokenToIndex[tokenID]; exists {
			continue
		}

		managerIndex := p.managerIndex(tokenID)
		p.tokenToIndex[tokenID] = managerIndex
		tokensByManager[managerIndex] = append(tokensByManager[managerIndex], tokenID)
		newTokensCount++
	}
	p.mu.Unlock()

	errChan := make(chan error, len(tokensByManager))
	var subWg sync.WaitGroup

	for managerIndex, tokens := range tokensByManager {
		subWg.Add(1)
		go func(idx int, toks []string) {
			defer subWg.Done()

			err := p.managers[idx].Subscribe(ctx, toks)
			if err != nil {
				p.logger.Error("manager-subscribe-failed",
					zap.Int("manager-id", idx),
					zap.Int("token-count", len(toks)),
					zap.Error(err))
				errChan <- fmt.Errorf("manager %d subscribe failed: %w", idx, err)
			}
		}(managerIndex, tokens)
	}

	subWg.Wait()
	close(errChan)

	var subscribeErrors []error
	for err := range errChan {
		subscribeErrors = append(subscribeErrors, err)
	}

	if len(subscribeErrors) > 0 {
		return fmt.Errorf("failed to subscribe on %d managers: %v", len(subscribeErrors), subscribeErrors)
	}

	p.mu.Lock()
	p.totalSubscriptions += newTokensCount
	totalSubs := p.totalSubscriptions
	p.mu.Unlock()

	SubscriptionCount.Set(float64(totalSubs))
	p.updateDistributionMetrics()

	p.logger.Info("pool-subscribed-to-tokens",
		zap.Int("new-tokens", newTokensCount),
		zap.Int("total-subscriptions", totalSubs),
		zap.Int("managers-used", len(tokensByManager)))

	return nil
}

// Unsubscribe removes token subscriptions from their assigned managers.
func (p *Pool) Unsubscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	tokensByManager := make(map[int][]string)
	removedTokensCount := 0

	p.mu.Lock()
	for _, tokenID := range tokenIDs {
		if managerIndex, exists := p.tokenToIndex[tokenID]; exists {
			tokensByManager[managerIndex] = append(tokensByManager[managerIndex], tokenID)
			delete(p.tokenToIndex, tokenID)
			removedTokensCount++
		}
	}
	p.mu.Unlock()

	errChan := make(chan error, len(tokensByManager))
	var unsubWg sync.WaitGroup

	for managerIndex, tokens := range tokensByManager {
		unsubWg.Add(1)
		go func(idx int, toks []string) {
			defer unsubWg.Done()

			err := p.managers[idx].Unsubscribe(ctx, toks)
			if err != nil {
				p.logger.Error("manager-unsubscribe-failed",
					zap.Int("manager-id", idx),
					zap.Int("token-count", len(toks)),
					zap.Error(err))
				errChan <- fmt.Errorf("manager %d unsubscribe failed: %w", idx, err)
			}
		}(managerIndex, tokens)
	}

	unsubWg.Wait()
	close(errChan)

	var unsubscribeErrors []error
	for err := range errChan {
		unsubscribeErrors = append(unsubscribeErrors, err)
	}

	if len(unsubscribeErrors) > 0 {
		return fmt.Errorf("failed to unsubscribe on %d managers: %v", len(unsubscribeErrors), unsubscribeErrors)
	}

	p.mu.Lock()
	p.totalSubscriptions -= removedTokensCount
	totalSubs := p.totalSubscriptions
	p.mu.Unlock()

	SubscriptionCount.Set(float64(totalSubs))

	p.logger.Info("pool-unsubscribed-from-tokens",
		zap.Int("removed-tokens", removedTokensCount),
		zap.Int("total-subscriptions", totalSubs),
		zap.Int("managers-used", len(tokensByManager)))

	return nil
}

// Books returns the merged book snapshot stream from all managers.
func (p *Pool) Books() <-chan *types.BookMessage {
	return p.bookChan
}

// PriceChanges returns the merged price change stream from all managers.
func (p *Pool) PriceChanges() <-chan *types.PriceChangeMessage {
	return p.changeChan
}

// Connected reports whether every pooled connection is currently live.
func (p *Pool) Connected() bool {
	for _, mgr := range p.managers {
		if !mgr.Connected() {
			return false
		}
	}

	return true
}

// Close gracefully closes all WebSocket managers in the pool.
func (p *Pool) Close() error {
	p.logger.Info("closing-websocket-pool")

	p.cancel()

	var closeWg sync.WaitGroup
	for i, mgr := range p.managers {
		closeWg.Add(1)
		go func(index int, manager *Manager) {
			defer closeWg.Done()

			err := manager.Close()
			if err != nil {
				p.logger.Error("manager-close-failed",
					zap.Int("manager-id", index),
					zap.Error(err))
			}
		}(i, mgr)
	}

	closeWg.Wait()
	p.wg.Wait()

	close(p.bookChan)
	close(p.changeChan)

	PoolActiveConnections.Set(0)

	p.logger.Info("websocket-pool-closed")

	return nil
}

// managerIndex shards a token ID onto a manager using CRC32.
// Must be called with p.mu held.
func (p *Pool) managerIndex(tokenID string) int {
	hash := crc32.ChecksumIEEE([]byte(tokenID))
	return int(hash) % p.cfg.Size
}

// updateDistributionMetrics records how subscriptions spread across the pool.
func (p *Pool) updateDistributionMetrics() {
	subscriptionsPerManager := make(map[int]int)

	p.mu.RLock()
	for _, managerIndex := range p.tokenToIndex {
		subscriptionsPerManager[managerIndex]++
	}
	p.mu.RUnlock()

	for _, count := range subscriptionsPerManager {
		PoolSubscriptionDistribution.Observe(float64(count))
	}
}
