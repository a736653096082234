// Package trace keeps a bounded per-session history of workflow events for
// the debug trace endpoint.
package trace

import (
	"sync"
	"time"

	"deck-builder-be/pkg/deck/events"
)

const defaultMaxEntries = 2048

// Entry is one traced event with its position on the session timeline.
type Entry struct {
	Seq   int          `json:"seq"`
	At    time.Time    `json:"at"`
	Event events.Event `json:"event"`
}

// Store holds event traces keyed by session ID. Each trace is append-only
// and capped: once full, the oldest entries are dropped.
type Store struct {
	mu         sync.RWMutex
	traces     map[string][]Entry
	seqs       map[string]int
	maxEntries int
}

func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Store{
		traces:     make(map[string][]Entry),
		seqs:       make(map[string]int),
		maxEntries: maxEntries,
	}
}

func (s *Store) Append(sessionID string, ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[sessionID]++
	entries := append(s.traces[sessionID], Entry{
		Seq:   s.seqs[sessionID],
		At:    time.Now(),
		Event: ev,
	})
	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.traces[sessionID] = entries
}

// Get returns a copy of the session's trace in append order.
func (s *Store) Get(sessionID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.traces[sessionID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.traces, sessionID)
	delete(s.seqs, sessionID)
}
