// Package history records engine operations so they can be listed and
// exported later.
//
// Every analyze, transform, validate and decompose call served by the HTTP
// boundary produces one [Entry]. Entries are keyed by their UTC timestamp
// with nanosecond resolution; entries sharing a timestamp are ordered by ID.
//
// # Backends
//
//   - memory: process-local, used by tests and short-lived servers
//   - sqlite: embedded file via modernc.org/sqlite (the default)
//   - postgres: a PostgreSQL server via the pgx database/sql driver
//   - mongo: a MongoDB collection
//
// [Open] selects a backend from a [Config].
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded operation.
type Entry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Operation  string          `json:"operation"`
	Adapter    string          `json:"adapter,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	DurationMS float64         `json:"duration_ms"`
}

// Query filters List. Zero fields match everything.
type Query struct {
	Operation string
	Adapter   string
	// From is inclusive, To is exclusive.
	From, To time.Time
	// Limit caps the number of entries; 0 means no limit.
	Limit int
	// Ascending returns the oldest entries first. The default is newest first.
	Ascending bool
}

// Store persists entries.
type Store interface {
	// Record stores e, assigning an ID and a timestamp when they are unset,
	// and returns the stored entry.
	Record(ctx context.Context, e Entry) (Entry, error)
	// List returns the entries matching q.
	List(ctx context.Context, q Query) ([]Entry, error)
	// Get returns one entry or a NOT_FOUND error.
	Get(ctx context.Context, id string) (Entry, error)
	Close() error
}

// prepare fills the ID and normalizes the timestamp to UTC without a
// monotonic reading, so stored and returned entries compare equal.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = time.Unix(0, e.Timestamp.UnixNano()).UTC()
	return e
}

func fromNanos(ns int64) time.Time { return time.Unix(0, ns).UTC() }

// less orders entries by timestamp, then ID.
func less(a, b Entry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func (q Query) matches(e Entry) bool {
	if q.Operation != "" && e.Operation != q.Operation {
		return false
	}
	if q.Adapter != "" && e.Adapter != q.Adapter {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.Timestamp.Before(q.To) {
		return false
	}
	return true
}
