package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// mapCache is a minimal in-memory cache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]interface{})}
}

func (m *mapCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(key string, value interface{}, _ time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return true
}

func (m *mapCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *mapCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]interface{})
}

func (m *mapCache) Close() {}

func TestTokenMetadata_FetchAndCache(t *testing.T) {
	var tickCalls, negCalls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tick-size":
			tickCalls++
			fmt.Fprint(w, `{"minimum_tick_size": "0.001"}`)
		case "/neg-risk":
			negCalls++
			fmt.Fprint(w, `{"neg_risk": true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{ClobURL: server.URL, Logger: zap.NewNop()})
	fetcher := NewMetadataFetcher(client, newMapCache(), zap.NewNop())

	meta := fetcher.TokenMetadata(context.Background(), "tok1")
	if meta.TickSize != "0.001" {
		t.Errorf("TickSize = %q, want 0.001", meta.TickSize)
	}
	if !meta.NegRisk {
		t.Error("NegRisk = false, want true")
	}

	// Second lookup is served from cache.
	_ = fetcher.TokenMetadata(context.Background(), "tok1")
	if tickCalls != 1 || negCalls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", tickCalls, negCalls)
	}
}

func TestTokenMetadata_FallbackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{ClobURL: server.URL, Logger: zap.NewNop()})
	fetcher := NewMetadataFetcher(client, newMapCache(), zap.NewNop())

	meta := fetcher.TokenMetadata(context.Background(), "tok1")
	if meta.TickSize != "0.01" {
		t.Errorf("TickSize = %q, want default 0.01", meta.TickSize)
	}
	if meta.NegRisk {
		t.Error("NegRisk = true, want false default")
	}
}
