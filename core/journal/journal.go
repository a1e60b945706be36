// Package journal defines the outcome journal: one entry per remote call
// of the synchronization engine, kept for operators.
package journal

import (
	"context"
	"time"

	"github.com/kilianp07/evsync/core/events"
)

// Entry captures one dispatch and its outcome.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	AdapterID    string    `json:"adapter_id"`
	Path         string    `json:"path"`
	Kind         string    `json:"kind"`
	Items        int       `json:"items"`
	Description  string    `json:"description,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	RuntimeMS    int64     `json:"runtime_ms"`
	NotForwarded []string  `json:"not_forwarded,omitempty"`
}

// FromDispatch converts a dispatch event into an entry.
func FromDispatch(e events.DispatchEvent) Entry {
	out := Entry{
		Timestamp:   e.Time,
		AdapterID:   e.AdapterID,
		Path:        string(e.Path),
		Kind:        e.Ack.Kind.String(),
		Items:       e.Items,
		Description: e.Ack.Description,
		Warnings:    e.Ack.Warnings,
		RuntimeMS:   e.Ack.Runtime.Milliseconds(),
	}
	for _, nf := range e.Ack.NotForwarded {
		out.NotForwarded = append(out.NotForwarded, nf.Record.SessionID)
	}
	return out
}

// Query defines filters for retrieving entries. Zero fields match
// everything; Limit keeps the most recent entries.
type Query struct {
	Start time.Time
	End   time.Time
	Path  string
	Kind  string
	Limit int
}

// Matches reports whether e passes the time, path and kind filters.
func (q Query) Matches(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.Path != "" && e.Path != q.Path {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	return true
}

// Tail applies Limit to entries sorted oldest first.
func (q Query) Tail(entries []Entry) []Entry {
	if q.Limit > 0 && len(entries) > q.Limit {
		return entries[len(entries)-q.Limit:]
	}
	return entries
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}
