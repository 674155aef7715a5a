package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports whether one dependency (a venue connection, the stream
// feed) is currently healthy.
type CheckFunc func() bool

// HealthChecker provides health and readiness checks with per-dependency
// detail for the two venues.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	mu        sync.RWMutex
	checks    map[string]CheckFunc
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]CheckFunc),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RegisterCheck attaches a named dependency check. Checks are reported on
// /health and gate /ready together with the ready flag.
func (h *HealthChecker) RegisterCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	h.checks[name] = fn
	h.mu.Unlock()
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime"`
	Message string          `json:"message,omitempty"`
	Checks  map[string]bool `json:"checks,omitempty"`
}

// runChecks evaluates every registered check.
func (h *HealthChecker) runChecks() (results map[string]bool, allOK bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	allOK = true
	if len(h.checks) == 0 {
		return nil, true
	}

	results = make(map[string]bool, len(h.checks))
	for name, fn := range h.checks {
		ok := fn()
		results[name] = ok
		if !ok {
			allOK = false
		}
	}

	return results, allOK
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running; per-dependency
// results are informational.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, _ := h.runChecks()
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
			Checks: checks,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready and every dependency check passes, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, allOK := h.runChecks()

		if !h.ready.Load() || !allOK {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting or a dependency is down",
				Checks:  checks,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
			Checks: checks,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
