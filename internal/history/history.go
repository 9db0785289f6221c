// Package history persists spoken phrases. Every phrase the assistant speaks
// aloud, including emergency announcements, is appended to a sink so
// caregivers can review what was communicated and when. Sinks are
// append-mostly: the core writes records and only reads them back for the
// recent-history view.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record sources.
const (
	SourceManual     = "manual"     // typed or picked directly by the user
	SourceSuggestion = "suggestion" // chosen from the suggestion list
	SourceEmergency  = "emergency"  // spoken by the escalation dispatcher
)

// Record is one spoken phrase with the context it was spoken in.
type Record struct {
	ID            string    `json:"id"`
	Phrase        string    `json:"phrase"`
	Category      string    `json:"category"`
	Source        string    `json:"source"`
	Emotion       string    `json:"emotion,omitempty"`
	LocationLabel string    `json:"location_label,omitempty"`
	PersonLabel   string    `json:"person_label,omitempty"`
	SpokenAt      time.Time `json:"spoken_at"`
}

// NewRecord creates a record with a fresh ID and the current time.
func NewRecord(phrase, category, source string) Record {
	return Record{
		ID:       uuid.New().String(),
		Phrase:   phrase,
		Category: category,
		Source:   source,
		SpokenAt: time.Now(),
	}
}

// Sink stores communication history.
type Sink interface {
	// Append stores one record.
	Append(ctx context.Context, record Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Close releases the sink's resources.
	Close() error
}

// MemorySink keeps history in memory. It backs tests and the memory storage
// engine; history is lost on restart.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores one record.
func (s *MemorySink) Append(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *MemorySink) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close is a no-op for the in-memory sink.
func (s *MemorySink) Close() error {
	return nil
}

var _ Sink = (*MemorySink)(nil)
