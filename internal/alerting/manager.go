package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Level classifies alert severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarn     Level = "warn"
	LevelCritical Level = "critical"
)

// Alert is one notification on its way to the console and the webhook.
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// webhookTimeout bounds one webhook POST.
const webhookTimeout = 5 * time.Second

// Manager deduplicates, batches and delivers alerts. Non-critical alerts
// respect a per-type cooldown and ride a batched flush; critical alerts
// bypass both. Every alert is logged to the console regardless of webhook
// configuration.
type Manager struct {
	webhookURL string
	cooldown   time.Duration
	batchDelay time.Duration
	source     string
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int
	queue      []Alert
	flushTimer *time.Timer

	wg sync.WaitGroup
}

// Config holds alert manager configuration.
type Config struct {
	WebhookURL string
	Cooldown   time.Duration // per-type dedup window for non-critical alerts
	BatchDelay time.Duration // delay before a scheduled batch flush
	Source     string
	Logger     *zap.Logger
}

// New creates an alert manager.
func New(cfg Config) *Manager {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 5 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = "crossmarket-arb"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{
		webhookURL: cfg.WebhookURL,
		cooldown:   cfg.Cooldown,
		batchDelay: cfg.BatchDelay,
		source:     cfg.Source,
		httpClient: &http.Client{Timeout: webhookTimeout},
		logger:     cfg.Logger,
		lastSent:   make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// Send routes one alert. Critical alerts skip the cooldown and trigger an
// immediate flush; others join the batch.
func (m *Manager) Send(level Level, alertType, message string) {
	alert := Alert{
		Type:      alertType,
		Message:   message,
		Level:     level,
		Timestamp: time.Now().UTC(),
		Source:    m.source,
	}

	m.logToConsole(alert)
	AlertsTotal.WithLabelValues(string(level), alertType).Inc()

	m.mu.Lock()

	if level != LevelCritical {
		if last, seen := m.lastSent[alertType]; seen && time.Since(last) < m.cooldown {
			m.suppressed[alertType]++
			AlertsSuppressedTotal.WithLabelValues(alertType).Inc()
			m.mu.Unlock()
			return
		}
		m.lastSent[alertType] = time.Now()
	}

	m.queue = append(m.queue, alert)

	if level == LevelCritical {
		if m.flushTimer != nil {
			m.flushTimer.Stop()
			m.flushTimer = nil
		}
		m.flushLocked()
		m.mu.Unlock()
		return
	}

	if m.flushTimer == nil {
		m.flushTimer = time.AfterFunc(m.batchDelay, m.scheduledFlush)
	}

	m.mu.Unlock()
}

// Info sends an informational alert.
func (m *Manager) Info(alertType, message string) { m.Send(LevelInfo, alertType, message) }

// Warn sends a warning alert.
func (m *Manager) Warn(alertType, message string) { m.Send(LevelWarn, alertType, message) }

// Critical sends a critical alert, bypassing cooldown and batching.
func (m *Manager) Critical(alertType, message string) { m.Send(LevelCritical, alertType, message) }

// scheduledFlush fires from the batch timer.
func (m *Manager) scheduledFlush() {
	m.mu.Lock()
	m.flushTimer = nil
	m.flushLocked()
	m.mu.Unlock()
}

// Flush drains any queued alerts now. Called on shutdown.
func (m *Manager) Flush() {
	m.mu.Lock()
	if m.flushTimer != nil {
		m.flushTimer.Stop()
		m.flushTimer = nil
	}
	m.flushLocked()
	m.mu.Unlock()

	m.wg.Wait()
}

// flushLocked hands the queued batch to a delivery goroutine. Caller holds
// the mutex; the queue swap keeps the drain atomic.
func (m *Manager) flushLocked() {
	if len(m.queue) == 0 {
		return
	}

	batch := m.queue
	m.queue = nil

	if m.webhookURL == "" {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.deliver(batch)
	}()
}

// webhookPayload is the consolidated POST body.
type webhookPayload struct {
	Text   string  `json:"text"`
	Alerts []Alert `json:"alerts"`
}

// deliver POSTs one consolidated payload for the batch.
func (m *Manager) deliver(batch []Alert) {
	var b strings.Builder
	for i, alert := range batch {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s [%s] %s", levelIcon(alert.Level), alert.Type, alert.Message)
	}

	body, err := json.Marshal(webhookPayload{Text: b.String(), Alerts: batch})
	if err != nil {
		m.logger.Error("alert-payload-marshal-failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("alert-request-build-failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		WebhookErrorsTotal.Inc()
		m.logger.Error("alert-webhook-failed",
			zap.Int("batch-size", len(batch)),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		WebhookErrorsTotal.Inc()
		m.logger.Error("alert-webhook-rejected",
			zap.Int("status", resp.StatusCode),
			zap.Int("batch-size", len(batch)))
		return
	}

	WebhookSentTotal.Add(float64(len(batch)))
	m.logger.Debug("alert-batch-delivered", zap.Int("batch-size", len(batch)))
}

// SuppressedCount returns how many alerts of a type were swallowed by the
// cooldown window.
func (m *Manager) SuppressedCount(alertType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.suppressed[alertType]
}

// logToConsole mirrors every alert to the structured log.
func (m *Manager) logToConsole(alert Alert) {
	fields := []zap.Field{
		zap.String("alert-type", alert.Type),
		zap.String("level", string(alert.Level)),
	}

	switch alert.Level {
	case LevelCritical:
		m.logger.Error("alert "+alert.Message, fields...)
	case LevelWarn:
		m.logger.Warn("alert "+alert.Message, fields...)
	default:
		m.logger.Info("alert "+alert.Message, fields...)
	}
}

func levelIcon(level Level) string {
	switch level {
	case LevelCritical:
		return "🚨"
	case LevelWarn:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
