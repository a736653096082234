package memory

import (
	"sync"
	"time"

	"deck-builder-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps deck sessions in process memory. Sessions expire
// after an hour of inactivity, and the repository holds at most maxSessions
// live entries: when full, the least recently touched session is evicted to
// make room.
//
// Stored sessions are snapshots: Save clones before storing and Get clones
// before returning, so a session held by one goroutine is never visible to
// another mid-mutation.
type SessionRepository struct {
	cache       *cache.Cache
	maxSessions int

	mu      sync.Mutex
	touched map[string]time.Time
}

func NewSessionRepository(maxSessions int) *SessionRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	if maxSessions <= 0 {
		maxSessions = 256
	}
	return &SessionRepository{
		cache:       c,
		maxSessions: maxSessions,
		touched:     make(map[string]time.Time),
	}
}

func (r *SessionRepository) Save(session *store.DeckSession) {
	r.mu.Lock()
	if _, exists := r.touched[session.ID]; !exists && len(r.touched) >= r.maxSessions {
		r.pruneExpiredLocked()
	}
	if _, exists := r.touched[session.ID]; !exists && len(r.touched) >= r.maxSessions {
		r.evictOldestLocked()
	}
	r.touched[session.ID] = time.Now()
	r.mu.Unlock()

	session.LastTouched = time.Now()
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.DeckSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		r.mu.Lock()
		r.touched[sessionID] = time.Now()
		r.mu.Unlock()
		return x.(*store.DeckSession).Clone(), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
	r.mu.Lock()
	delete(r.touched, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneExpiredLocked()
	return len(r.touched)
}

// pruneExpiredLocked drops touch records whose sessions already expired out
// of the cache, so TTL expiry frees capacity before a live session is
// evicted. Caller holds r.mu.
func (r *SessionRepository) pruneExpiredLocked() {
	for id := range r.touched {
		if _, found := r.cache.Get(id); !found {
			delete(r.touched, id)
		}
	}
}

// evictOldestLocked removes the least recently touched session. Caller holds
// r.mu.
func (r *SessionRepository) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, at := range r.touched {
		if oldestID == "" || at.Before(oldestAt) {
			oldestID = id
			oldestAt = at
		}
	}
	if oldestID != "" {
		delete(r.touched, oldestID)
		r.cache.Delete(oldestID)
	}
}
