package execution

import (
	"sync"
	"time"
)

// AuditType classifies one audit entry.
type AuditType string

const (
	AuditSkipMinOrder        AuditType = "SKIP_MIN_ORDER"
	AuditSkipLiquidity       AuditType = "SKIP_LIQUIDITY"
	AuditDryRun              AuditType = "DRY_RUN"
	AuditExecuted            AuditType = "EXECUTED"
	AuditCriticalPartialFill AuditType = "CRITICAL_PARTIAL_FILL"
	AuditBothFailed          AuditType = "BOTH_FAILED"
)

// AuditEntry records one execution decision.
type AuditEntry struct {
	Type      AuditType              `json:"type"`
	Market    string                 `json:"market"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// defaultAuditSize bounds the audit ring.
const defaultAuditSize = 500

// AuditLog is a bounded FIFO of execution decisions. When full, the oldest
// entry is evicted.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
}

// NewAuditLog creates an audit log holding at most max entries.
func NewAuditLog(max int) *AuditLog {
	if max <= 0 {
		max = defaultAuditSize
	}

	return &AuditLog{
		entries: make([]AuditEntry, 0, max),
		max:     max,
	}
}

// Record appends one entry, evicting the oldest when full.
func (a *AuditLog) Record(t AuditType, market string, details map[string]interface{}) {
	entry := AuditEntry{
		Type:      t,
		Market:    market,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   details,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) >= a.max {
		a.entries = a.entries[1:]
	}

	a.entries = append(a.entries, entry)
}

// Entries returns a copy of the log, oldest first.
func (a *AuditLog) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)

	return out
}

// Len returns the current entry count.
func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.entries)
}
