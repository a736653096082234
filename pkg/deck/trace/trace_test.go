package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/pkg/deck/events"
)

func TestStoreAppendAndGet(t *testing.T) {
	s := NewStore(10)

	s.Append("a", events.Session{Type: events.TypeSession, SessionID: "a"})
	s.Append("a", events.Complete{Type: events.TypeComplete})
	s.Append("b", events.Session{Type: events.TypeSession, SessionID: "b"})

	got := s.Get("a")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, 2, got[1].Seq)
	assert.Equal(t, events.TypeComplete, got[1].Event.EventType())

	assert.Len(t, s.Get("b"), 1)
	assert.Empty(t, s.Get("missing"))
}

func TestStoreCapsEntries(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Append("a", events.Complete{Type: events.TypeComplete})
	}

	got := s.Get("a")
	require.Len(t, got, 3)
	// Oldest dropped, sequence numbers keep counting
	assert.Equal(t, 3, got[0].Seq)
	assert.Equal(t, 5, got[2].Seq)
}

func TestStoreDrop(t *testing.T) {
	s := NewStore(10)
	s.Append("a", events.Complete{Type: events.TypeComplete})
	s.Drop("a")
	assert.Empty(t, s.Get("a"))
}
