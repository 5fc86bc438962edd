// Package domain defines the types and interfaces for the signals service
package domain

import (
	"time"

	"retrosignal/internal/core/patterns"
)

// Backend names a persistence target
type Backend string

const (
	// BackendPrimary is the configured database (postgres, sqlite or clickhouse)
	BackendPrimary Backend = "primary"
	// BackendFile is the bundle directory, always available
	BackendFile Backend = "file"
)

// Valid reports whether b is a known backend
func (b Backend) Valid() bool { return b == BackendPrimary || b == BackendFile }

// Record is a persisted signal. Immutable once written
type Record struct {
	ID          string            `json:"id"`
	Category    patterns.Category `json:"category"`
	Pattern     string            `json:"pattern"`
	MatchedText string            `json:"matchedText"`
	Position    int               `json:"position"`
	Context     string            `json:"context"`
	Weight      float64           `json:"weight"`
	Timestamp   time.Time         `json:"timestamp"`
	SessionID   string            `json:"sessionId"`
	DirectiveID string            `json:"directiveId"`
	Metadata    map[string]any    `json:"metadata"`
	StoredAt    time.Time         `json:"storedAt"`
}

// Attempt is the outcome of writing a snapshot to one backend
type Attempt struct {
	Backend   Backend `json:"backend"`
	Count     int     `json:"count"`
	ElapsedMs int64   `json:"elapsedMs"`
	Error     string  `json:"error,omitempty"`
	Err       error   `json:"-"`
}

// OK reports whether the attempt wrote the snapshot
func (a Attempt) OK() bool { return a.Err == nil }

// FlushReport describes one flush: what was asked, what was tried, where it landed
type FlushReport struct {
	Requested Backend   `json:"requested"`
	Snapshot  int       `json:"snapshot"`
	Attempts  []Attempt `json:"attempts"`
	WrittenTo Backend   `json:"writtenTo,omitempty"`
	Requeued  int       `json:"requeued"`
}

// OK reports whether nothing was left behind. An empty flush is OK
func (r FlushReport) OK() bool { return r.Snapshot == 0 || r.WrittenTo != "" }
