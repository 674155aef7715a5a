package alerting

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// captureServer records webhook deliveries.
type captureServer struct {
	mu       sync.Mutex
	payloads []webhookPayload
	server   *httptest.Server
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()

	cs := &captureServer{}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal webhook payload: %v", err)
		}

		cs.mu.Lock()
		cs.payloads = append(cs.payloads, payload)
		cs.mu.Unlock()
	}))
	t.Cleanup(cs.server.Close)

	return cs
}

func (cs *captureServer) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.payloads)
}

func (cs *captureServer) batch(i int) webhookPayload {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.payloads[i]
}

func TestSend_CooldownSuppressesRepeats(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: 10 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	m.Warn("trade_failed", "first")
	m.Warn("trade_failed", "second within cooldown")
	m.Warn("trade_failed", "third within cooldown")
	m.Flush()

	if got := m.SuppressedCount("trade_failed"); got != 2 {
		t.Errorf("SuppressedCount = %d, want 2", got)
	}

	if cs.count() != 1 {
		t.Fatalf("webhook batches = %d, want 1", cs.count())
	}
	if got := len(cs.batch(0).Alerts); got != 1 {
		t.Errorf("delivered alerts = %d, want 1", got)
	}
}

func TestSend_DifferentTypesDoNotShareCooldown(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: 10 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	m.Warn("trade_failed", "a")
	m.Info("big_opportunity", "b")
	m.Flush()

	if cs.count() != 1 {
		t.Fatalf("webhook batches = %d, want 1", cs.count())
	}
	if got := len(cs.batch(0).Alerts); got != 2 {
		t.Errorf("delivered alerts = %d, want 2", got)
	}
}

func TestSend_CriticalBypassesCooldownAndFlushesImmediately(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: time.Hour, // a scheduled flush would never fire in this test
		Logger:     zap.NewNop(),
	})

	m.Critical("partial_fill", "leg A filled, leg B failed")
	m.Critical("partial_fill", "again, no cooldown for critical")
	m.Flush()

	if m.SuppressedCount("partial_fill") != 0 {
		t.Error("critical alerts must never be suppressed")
	}

	if cs.count() != 2 {
		t.Fatalf("webhook batches = %d, want 2 immediate flushes", cs.count())
	}
}

func TestSend_BatchFlushAfterDelay(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: 20 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	m.Info("bot_started", "up")
	m.Warn("trade_failed", "down")

	if cs.count() != 0 {
		t.Fatal("batch should not flush before the delay")
	}

	deadline := time.After(2 * time.Second)
	for cs.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("batch never flushed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Flush()

	if got := len(cs.batch(0).Alerts); got != 2 {
		t.Errorf("batch size = %d, want 2 consolidated alerts", got)
	}
}

func TestSend_NoWebhookStillLogs(t *testing.T) {
	// No webhook configured: alerts only hit the console, nothing panics.
	m := New(Config{
		Cooldown:   time.Minute,
		BatchDelay: 10 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	m.Critical("partial_fill", "no webhook to call")
	m.Info("bot_started", "queued then dropped")
	m.Flush()
}

func TestDeliver_PayloadCarriesLevelIcons(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: time.Hour,
		Logger:     zap.NewNop(),
	})

	m.Critical("partial_fill", "bad news")
	m.Flush()

	if cs.count() != 1 {
		t.Fatalf("webhook batches = %d, want 1", cs.count())
	}

	text := cs.batch(0).Text
	if text == "" {
		t.Fatal("payload text is empty")
	}
	if want := "🚨"; len(text) > 0 && text[:len(want)] != want {
		t.Errorf("text = %q, want critical icon prefix", text)
	}
}

func TestEvents_TypeStrings(t *testing.T) {
	cs := newCaptureServer(t)

	m := New(Config{
		WebhookURL: cs.server.URL,
		Cooldown:   time.Minute,
		BatchDelay: 10 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	m.TradeExecuted("Will it rain?", 20, 4)
	m.CircuitBreakerTripped(10, 25)
	m.Flush()

	var all []Alert
	for i := 0; i < cs.count(); i++ {
		all = append(all, cs.batch(i).Alerts...)
	}

	seen := map[string]Level{}
	for _, a := range all {
		seen[a.Type] = a.Level
	}

	if seen["trade_executed"] != LevelInfo {
		t.Errorf("trade_executed level = %q, want info", seen["trade_executed"])
	}
	if seen["circuit_breaker_tripped"] != LevelCritical {
		t.Errorf("circuit_breaker_tripped level = %q, want critical", seen["circuit_breaker_tripped"])
	}
}
