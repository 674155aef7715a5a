package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/internal/execution"
	"github.com/mselser95/crossmarket-arb/internal/orchestrator"
	"github.com/mselser95/crossmarket-arb/pkg/healthprobe"
)

func newTestServer(t *testing.T, engine *orchestrator.Service, executor *execution.Executor) (*Server, *healthprobe.HealthChecker) {
	t.Helper()

	checker := healthprobe.New()
	server := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: checker,
		Engine:        engine,
		Executor:      executor,
	})

	return server, checker
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	return rec
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil, nil)

	rec := get(t, server, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}

	var resp healthprobe.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

func TestReadyEndpoint_GatesOnReadyFlag(t *testing.T) {
	server, checker := newTestServer(t, nil, nil)

	if rec := get(t, server, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready before SetReady = %d, want 503", rec.Code)
	}

	checker.SetReady(true)

	if rec := get(t, server, "/ready"); rec.Code != http.StatusOK {
		t.Fatalf("GET /ready after SetReady = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil, nil)

	if rec := get(t, server, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
}

func TestAPIRoutesAbsentWithoutEngine(t *testing.T) {
	server, _ := newTestServer(t, nil, nil)

	if rec := get(t, server, "/api/pairs"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/pairs without engine = %d, want 404", rec.Code)
	}
	if rec := get(t, server, "/api/audit"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/audit without executor = %d, want 404", rec.Code)
	}
}

func TestPairsEndpoint_EmptyEngine(t *testing.T) {
	engine := orchestrator.New(orchestrator.Config{Logger: zap.NewNop()})
	server, _ := newTestServer(t, engine, nil)

	rec := get(t, server, "/api/pairs")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/pairs = %d, want 200", rec.Code)
	}

	var pairs []PairView
	if err := json.Unmarshal(rec.Body.Bytes(), &pairs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("pairs = %d, want 0", len(pairs))
	}
}

func TestPositionsEndpoint_EmptyLedger(t *testing.T) {
	engine := orchestrator.New(orchestrator.Config{Logger: zap.NewNop()})
	server, _ := newTestServer(t, engine, nil)

	rec := get(t, server, "/api/positions")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/positions = %d, want 200", rec.Code)
	}

	var positions []PositionView
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %d, want 0", len(positions))
	}
}

func TestAuditEndpoint_ServesRecordedEntries(t *testing.T) {
	executor := execution.New(execution.Config{Logger: zap.NewNop()})
	executor.Audit().Record(execution.AuditDryRun, "Will it rain?", map[string]interface{}{
		"contracts": 10,
	})

	server, _ := newTestServer(t, nil, executor)

	rec := get(t, server, "/api/audit")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/audit = %d, want 200", rec.Code)
	}

	var entries []execution.AuditEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Market != "Will it rain?" {
		t.Errorf("entries = %+v, want one for the recorded market", entries)
	}
}

func TestStatsEndpoint(t *testing.T) {
	executor := execution.New(execution.Config{Logger: zap.NewNop()})
	server, _ := newTestServer(t, nil, executor)

	rec := get(t, server, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/stats = %d, want 200", rec.Code)
	}

	var stats execution.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Attempted != 0 {
		t.Errorf("Attempted = %d, want 0", stats.Attempted)
	}
}
