package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// Manager owns one market-channel WebSocket connection to venue A. Decoded
// book snapshots and price changes fan out on separate typed channels.
type Manager struct {
	url          string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       Config
	bookChan     chan *types.BookMessage
	changeChan   chan *types.PriceChangeMessage
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	subscribed   map[string]bool // tracks subscribed token IDs
	connected    atomic.Bool
	lastPongTime atomic.Int64
	connectedAt  atomic.Int64 // Unix timestamp of connection start
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		bookChan:     make(chan *types.BookMessage, cfg.MessageBufferSize),
		changeChan:   make(chan *types.PriceChangeMessage, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start connects and launches the read, ping and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("websocket-manager-starting", zap.String("url", m.url))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-websocket", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectedAt.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("websocket-connected")

	return nil
}

// Subscribe subscribes to a list of token IDs.
func (m *Manager) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	m.mu.Lock()

	newTokens := make([]string, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		if !m.subscribed[tokenID] {
			newTokens = append(newTokens, tokenID)
			m.subscribed[tokenID] = true
		}
	}

	if len(newTokens) == 0 {
		m.mu.Unlock()
		m.logger.Debug("all-tokens-already-subscribed")
		return nil
	}

	// The first subscription opens the market channel; later ones use the
	// dynamic subscribe operation.
	var subscribeMsg map[string]interface{}
	isInitialSubscription := len(m.subscribed) == len(newTokens)

	if isInitialSubscription {
		subscribeMsg = map[string]interface{}{
			"assets_ids": newTokens,
			"type":       "market",
		}
	} else {
		subscribeMsg = map[string]interface{}{
			"assets_ids": newTokens,
			"operation":  "subscribe",
		}
	}

	totalSubscribed := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	// Network I/O without holding the lock.
	var err error
	if conn == nil {
		err = fmt.Errorf("no active connection")
	} else {
		err = conn.WriteJSON(subscribeMsg)
	}
	if err != nil {
		// Roll back subscription state on failure.
		m.mu.Lock()
		for _, tokenID := range newTokens {
			delete(m.subscribed, tokenID)
		}
		totalSubscribed = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(totalSubscribed))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(totalSubscribed))

	m.logger.Info("subscribed-to-tokens",
		zap.Int("new-count", len(newTokens)),
		zap.Int("total-count", totalSubscribed))

	return nil
}

// Unsubscribe unsubscribes from a list of token IDs.
func (m *Manager) Unsubscribe(ctx context.Context, tokenIDs []string) (err error) {
	if len(tokenIDs) == 0 {
		return nil
	}

	m.mu.Lock()

	tokensToUnsubscribe := make([]string, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		if m.subscribed[tokenID] {
			tokensToUnsubscribe = append(tokensToUnsubscribe, tokenID)
			delete(m.subscribed, tokenID)
		}
	}

	if len(tokensToUnsubscribe) == 0 {
		m.mu.Unlock()
		m.logger.Debug("no-tokens-to-unsubscribe")
		return nil
	}

	unsubscribeMsg := map[string]interface{}{
		"assets_ids": tokensToUnsubscribe,
		"operation":  "unsubscribe",
	}

	totalSubscribed := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		err = fmt.Errorf("no active connection")
	} else {
		err = conn.WriteJSON(unsubscribeMsg)
	}
	if err != nil {
		// Roll back so a later call retries these tokens.
		m.mu.Lock()
		for _, tokenID := range tokensToUnsubscribe {
			m.subscribed[tokenID] = true
		}
		totalSubscribed = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(totalSubscribed))
		return fmt.Errorf("write unsubscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(totalSubscribed))
	UnsubscriptionsTotal.Inc()

	m.logger.Info("unsubscribed-from-tokens",
		zap.Int("count", len(tokensToUnsubscribe)),
		zap.Int("remaining-count", totalSubscribed))

	return nil
}

// Event is one decoded market-channel element. Exactly one payload field
// is set for known event types.
type Event struct {
	Type        string
	Book        *types.BookMessage
	PriceChange *types.PriceChangeMessage
}

// decodeFrame splits one wire frame into typed events. Venue A batches
// events as a JSON array.
func decodeFrame(frame []byte) ([]Event, error) {
	var raws []json.RawMessage

	err := json.Unmarshal(frame, &raws)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(raws))

	for _, raw := range raws {
		var probe struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}

		switch probe.EventType {
		case "book":
			var msg types.BookMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			events = append(events, Event{Type: probe.EventType, Book: &msg})
		case "price_change":
			var msg types.PriceChangeMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			events = append(events, Event{Type: probe.EventType, PriceChange: &msg})
		default:
			// last_trade_price, tick_size_change and friends.
			events = append(events, Event{Type: probe.EventType})
		}
	}

	return events, nil
}

// readLoop reads frames from the WebSocket and dispatches decoded events.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			// Observe connection duration before marking as disconnected.
			startTime := m.connectedAt.Load()
			if startTime > 0 {
				duration := time.Since(time.Unix(startTime, 0)).Seconds()
				ConnectionDuration.Observe(duration)
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		events, err := decodeFrame(frame)
		if err != nil {
			m.handleUndecodableFrame(frame, err)
			continue
		}

		for i := range events {
			m.dispatch(&events[i])
		}
	}
}

// handleUndecodableFrame classifies frames that are not event arrays:
// heartbeats, subscription confirmations and other control messages.
func (m *Manager) handleUndecodableFrame(frame []byte, decodeErr error) {
	frameStr := string(frame)

	if frameStr == "[]" || frameStr == "" || len(frame) < 10 {
		m.logger.Debug("websocket-heartbeat-received", zap.Int("bytes", len(frame)))
		return
	}

	var controlMsg map[string]interface{}
	if json.Unmarshal(frame, &controlMsg) == nil {
		if msgType, ok := controlMsg["type"].(string); ok {
			m.logger.Debug("websocket-control-message",
				zap.String("type", msgType),
				zap.Int("bytes", len(frame)))
			return
		}
	}

	previewLen := len(frameStr)
	if previewLen > 100 {
		previewLen = 100
	}
	m.logger.Debug("websocket-unparseable-message",
		zap.Error(decodeErr),
		zap.Int("bytes", len(frame)),
		zap.String("preview", frameStr[:previewLen]))
}

// dispatch forwards one event to its typed channel without blocking.
func (m *Manager) dispatch(ev *Event) {
	start := time.Now()

	MessagesReceivedTotal.WithLabelValues(ev.Type).Inc()

	switch {
	case ev.Book != nil:
		select {
		case m.bookChan <- ev.Book:
		default:
			m.logger.Warn("book-channel-full", zap.String("asset-id", ev.Book.AssetID))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}
	case ev.PriceChange != nil:
		select {
		case m.changeChan <- ev.PriceChange:
		default:
			m.logger.Warn("price-change-channel-full", zap.String("market", ev.PriceChange.Market))
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}
	default:
		// Known-but-untracked event types are counted and skipped.
	}

	MessageLatencySeconds.Observe(time.Since(start).Seconds())
}

// pingLoop sends periodic PING messages.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop handles reconnection when the connection drops.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		err = m.resubscribeAll(m.ctx)
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.logger.Info("reconnection-complete-restarting-read-loop")

		m.wg.Add(1)
		go m.readLoop()
	}
}

// resubscribeAll resubscribes to all previously subscribed tokens.
func (m *Manager) resubscribeAll(ctx context.Context) error {
	m.mu.RLock()
	tokenIDs := make([]string, 0, len(m.subscribed))
	for tokenID := range m.subscribed {
		tokenIDs = append(tokenIDs, tokenID)
	}
	m.mu.RUnlock()

	if len(tokenIDs) == 0 {
		return nil
	}

	subscribeMsg := map[string]interface{}{
		"assets_ids": tokenIDs,
		"type":       "market",
	}

	m.mu.RLock()
	err := m.conn.WriteJSON(subscribeMsg)
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("resubscribed-to-all-markets", zap.Int("count", len(tokenIDs)))

	return nil
}

// Books returns the channel of decoded full book snapshots.
func (m *Manager) Books() <-chan *types.BookMessage {
	return m.bookChan
}

// PriceChanges returns the channel of decoded price change batches.
func (m *Manager) PriceChanges() <-chan *types.PriceChangeMessage {
	return m.changeChan
}

// Connected reports whether the socket currently holds a live connection.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// Close gracefully closes the WebSocket manager.
func (m *Manager) Close() error {
	m.logger.Info("closing-websocket-manager")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.bookChan)
	close(m.changeChan)

	ActiveConnections.Set(0)

	m.logger.Info("websocket-manager-closed")

	return nil
}
