package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/internal/pkg/logger"
	"deck-builder-be/internal/repository/memory"
	"deck-builder-be/pkg/deck"
	wfevents "deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/deck/trace"
	"deck-builder-be/pkg/llm"
	"deck-builder-be/pkg/store"
)

// capturingPublisher collects projected events instead of going through the
// bus, so tests can assert on the exact stream.
type capturingPublisher struct {
	mu     sync.Mutex
	events []wfevents.Event
}

func (p *capturingPublisher) Emit(_ string, rec wfevents.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, rec.Project(true)...)
}

func (p *capturingPublisher) ofType(t string) []wfevents.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []wfevents.Event
	for _, ev := range p.events {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

type queueProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (f *queueProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *queueProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, nil, opts...)
}

type mapSearcher struct {
	mu         sync.Mutex
	results    map[string][]store.SlideCandidate
	errQueries map[string]error
	all        []store.SlideCandidate
}

func (f *mapSearcher) Search(_ context.Context, query string, _ int) ([]store.SlideCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errQueries[query]; ok {
		return nil, err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return f.all, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
func (nopLogger) GetLogs(string, int, int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(string) (*logger.LogEntry, error) { return nil, nil }

func library(n int) []store.SlideCandidate {
	out := make([]store.SlideCandidate, n)
	for i := range out {
		out[i] = store.SlideCandidate{
			SessionCode:  "LIB",
			SlideNumber:  i + 1,
			Title:        fmt.Sprintf("Library slide %d", i+1),
			SessionTitle: "Reference Deck",
			PptUrl:       "https://files/lib.pptx",
			Content:      "body",
		}
	}
	return out
}

func twoSlideOutline() *store.Outline {
	return &store.Outline{
		Title:     "Demo",
		Narrative: "Start to finish",
		Slides: []store.OutlineSlide{
			{Position: 1, Topic: "Opening", Purpose: "Hook", SearchHints: []string{"What is it?"}},
			{Position: 2, Topic: "Closing", Purpose: "Wrap up", SearchHints: []string{"How to start?"}},
		},
	}
}

func newTestService(provider llm.LLMProvider, searcher deck.SlideSearcher, pub *capturingPublisher) (*deckService, *memory.SessionRepository) {
	sessions := memory.NewSessionRepository(16)
	policy := deck.DefaultPolicy()
	policy.MaxAttempts = 3
	policy.MaxRevisionRounds = 1

	svc := NewDeckService(
		sessions,
		searcher,
		provider,
		policy,
		pub,
		trace.NewStore(256),
		nopLogger{},
	).(*deckService)
	return svc, sessions
}

func seedPending(sessions *memory.SessionRepository, svc *deckService, outline *store.Outline, all []store.SlideCandidate) string {
	session, _ := svc.CreateSession(context.Background())
	session.Status = store.StatusOutlinePending
	session.Outline = outline
	session.AllSlides = all
	sessions.Save(session)
	return session.ID
}

func waitStatus(t *testing.T, sessions *memory.SessionRepository, id, status string) *store.DeckSession {
	t.Helper()
	var session *store.DeckSession
	require.Eventually(t, func() bool {
		s, ok := sessions.Get(id)
		if !ok {
			return false
		}
		session = s
		return s.Status == status
	}, 3*time.Second, 10*time.Millisecond, "session never reached %s", status)
	return session
}

func TestStartDeckProducesPendingOutline(t *testing.T) {
	provider := &queueProvider{responses: []string{
		`{"title": "Demo", "narrative": "Arc", "slides": [
		  {"position": 1, "topic": "Opening", "search_hints": ["What is it?"], "purpose": "Hook"},
		  {"position": 2, "topic": "Closing", "search_hints": [], "purpose": "Wrap"}
		]}`,
	}}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, &mapSearcher{all: library(5)}, pub)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.StartDeck(context.Background(), session.ID, "quarterly business review deck"))

	waitStatus(t, sessions, session.ID, store.StatusOutlinePending)

	require.Len(t, pub.ofType(wfevents.TypeOutlinePending), 1)
	require.Len(t, pub.ofType(wfevents.TypeAwaitingConfirmation), 1)
	assert.Empty(t, pub.ofType(wfevents.TypeError))

	got, _ := sessions.Get(session.ID)
	require.NotNil(t, got.Outline)
	assert.Len(t, got.Outline.Slides, 2)
}

func TestStartDeckUnknownAndInvalidTransitions(t *testing.T) {
	pub := &capturingPublisher{}
	svc, sessions := newTestService(&queueProvider{}, &mapSearcher{all: library(3)}, pub)

	err := svc.StartDeck(context.Background(), "nope", "x")
	assert.ErrorIs(t, err, deck.ErrUnknownSession)

	session, _ := svc.CreateSession(context.Background())
	session.Status = store.StatusCompiling
	sessions.Save(session)

	err = svc.StartDeck(context.Background(), session.ID, "x")
	assert.True(t, deck.IsInvalidTransition(err))
	// The rejected call leaves the session untouched
	got, _ := sessions.Get(session.ID)
	assert.Equal(t, store.StatusCompiling, got.Status)

	err = svc.ConfirmOutline(context.Background(), session.ID, nil, nil)
	assert.True(t, deck.IsInvalidTransition(err))
}

func TestOutlineFailureEmitsSingleErrorAndFails(t *testing.T) {
	provider := &queueProvider{err: errors.New("model offline")}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, &mapSearcher{all: library(3)}, pub)

	session, _ := svc.CreateSession(context.Background())
	require.NoError(t, svc.StartDeck(context.Background(), session.ID, "anything at all"))

	got := waitStatus(t, sessions, session.ID, store.StatusFailed)
	assert.NotEmpty(t, got.LastError)

	assert.Len(t, pub.ofType(wfevents.TypeError), 1)
	assert.Empty(t, pub.ofType(wfevents.TypeOutlinePending))
	assert.Empty(t, pub.ofType(wfevents.TypeComplete))
}

func TestBuildResolvesPositionsInOrder(t *testing.T) {
	provider := &queueProvider{responses: []string{
		`{"session_code": "LIB", "slide_number": 1, "reason": "fits opening"}`,
		`{"approved": true, "feedback": "good"}`,
		`{"session_code": "LIB", "slide_number": 2, "reason": "fits closing"}`,
		`{"approved": true, "feedback": "good"}`,
		`{"feedback": "Deck is coherent", "decisions": [
		  {"position": 1, "status": "approved"},
		  {"position": 2, "status": "approved"}
		]}`,
	}}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, &mapSearcher{all: library(5)}, pub)

	id := seedPending(sessions, svc, twoSlideOutline(), library(5))
	require.NoError(t, svc.ConfirmOutline(context.Background(), id, nil, nil))

	session := waitStatus(t, sessions, id, store.StatusComplete)

	// Exactly one selection start per position, strictly ascending
	starts := pub.ofType(wfevents.TypeSlideSelectionStart)
	require.Len(t, starts, 2)
	for i, ev := range starts {
		assert.Equal(t, i+1, ev.(wfevents.SlideSelectionStart).Position)
	}

	// Every resolved position has a matching slide_selected event
	selected := pub.ofType(wfevents.TypeSlideSelected)
	require.Len(t, selected, 2)
	require.Len(t, session.Deck, 2)
	assert.Equal(t, "LIB", session.Deck[0].SessionCode)
	// Reason carries the outline purpose prefix
	assert.Contains(t, session.Deck[0].Reason, "Hook - ")

	compiled := pub.ofType(wfevents.TypeDeckCompiled)
	require.Len(t, compiled, 1)
	assert.Len(t, compiled[0].(wfevents.DeckCompiled).Slides, 2)

	downloads := pub.ofType(wfevents.TypeDownloadInfo)
	require.Len(t, downloads, 1)
	decks := downloads[0].(wfevents.DownloadInfo).Decks
	require.Len(t, decks, 1)
	assert.ElementsMatch(t, []int{1, 2}, decks[0].SlidesUsed)

	require.Len(t, pub.ofType(wfevents.TypeComplete), 1)
	assert.Empty(t, pub.ofType(wfevents.TypeError))
}

func TestBuildPositionWithoutCandidatesYieldsShorterDeck(t *testing.T) {
	searcher := &mapSearcher{
		all: library(5),
		results: map[string][]store.SlideCandidate{
			// Every query for position 2 comes up empty
			"How to start?": {},
			"Closing":       {},
		},
	}
	provider := &queueProvider{responses: []string{
		`{"session_code": "LIB", "slide_number": 3, "reason": "fits"}`,
		`{"approved": true, "feedback": "good"}`,
		`{"feedback": "fine", "decisions": [{"position": 1, "status": "approved"}]}`,
	}}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, searcher, pub)

	id := seedPending(sessions, svc, twoSlideOutline(), library(5))
	require.NoError(t, svc.ConfirmOutline(context.Background(), id, nil, nil))

	session := waitStatus(t, sessions, id, store.StatusComplete)

	require.Len(t, session.Deck, 1)
	notFound := pub.ofType(wfevents.TypeSlideNotFound)
	require.Len(t, notFound, 1)
	assert.Equal(t, 2, notFound[0].(wfevents.SlideNotFound).Position)

	// slide_not_found is not an error; the build still completes
	require.Len(t, pub.ofType(wfevents.TypeComplete), 1)
	assert.Empty(t, pub.ofType(wfevents.TypeError))
}

func TestBuildRetrievalFailureKeepsPartialProgress(t *testing.T) {
	// Every query for position 2 fails; position 1 retrieves normally
	indexDown := errors.New("index offline")
	searcher := &mapSearcher{
		all: library(5),
		errQueries: map[string]error{
			"How to start?": indexDown,
			"Closing":       indexDown,
		},
	}
	provider := &queueProvider{responses: []string{
		`{"session_code": "LIB", "slide_number": 1, "reason": "fits"}`,
		`{"approved": true, "feedback": "good"}`,
	}}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, searcher, pub)

	id := seedPending(sessions, svc, twoSlideOutline(), library(5))
	require.NoError(t, svc.ConfirmOutline(context.Background(), id, nil, nil))

	session := waitStatus(t, sessions, id, store.StatusFailed)

	// Partial progress survives the failure
	require.NotEmpty(t, session.LastError)
	require.Len(t, session.Deck, 1)
	assert.Equal(t, 1, session.Deck[0].Position)
	assert.Len(t, pub.ofType(wfevents.TypeError), 1)
	assert.Empty(t, pub.ofType(wfevents.TypeComplete))
}

func TestRevisionReplacesSlideExactlyOnce(t *testing.T) {
	provider := &queueProvider{responses: []string{
		`{"session_code": "LIB", "slide_number": 1, "reason": "fits opening"}`,
		`{"approved": true, "feedback": "good"}`,
		`{"session_code": "LIB", "slide_number": 2, "reason": "fits closing"}`,
		`{"approved": true, "feedback": "good"}`,
		`{"feedback": "Opening is weak", "decisions": [
		  {"position": 1, "status": "to-be-replaced", "reason": "Too generic", "search_suggestion": "What makes a strong opening?"},
		  {"position": 2, "status": "approved"}
		]}`,
		`{"session_code": "LIB", "slide_number": 4, "reason": "stronger opening"}`,
		`{"approved": true, "feedback": "better"}`,
	}}
	pub := &capturingPublisher{}
	svc, sessions := newTestService(provider, &mapSearcher{all: library(5)}, pub)

	id := seedPending(sessions, svc, twoSlideOutline(), library(5))
	require.NoError(t, svc.ConfirmOutline(context.Background(), id, nil, nil))

	session := waitStatus(t, sessions, id, store.StatusComplete)

	// Position 1 now holds the replacement, position 2 is untouched
	require.Len(t, session.Deck, 2)
	first, ok := session.ResolvedAt(1)
	require.True(t, ok)
	assert.Equal(t, 4, first.SlideNumber)
	second, _ := session.ResolvedAt(2)
	assert.Equal(t, 2, second.SlideNumber)

	// Replaced slide's key is freed, replacement's is held
	assert.False(t, session.SelectedKeys[store.SlideKey("LIB", 1)])
	assert.True(t, session.SelectedKeys[store.SlideKey("LIB", 4)])

	progress := pub.ofType(wfevents.TypeRevisionProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, 1, progress[0].(wfevents.RevisionProgress).RevisionRound)

	// Three slide_selected total: two initial picks plus one replacement
	assert.Len(t, pub.ofType(wfevents.TypeSlideSelected), 3)
	assert.Equal(t, 1, session.RevisionRound)

	// Final intermediate deck is marked final with the revision round
	var finals []wfevents.IntermediateDeck
	for _, ev := range pub.ofType(wfevents.TypeIntermediateDeck) {
		id := ev.(wfevents.IntermediateDeck)
		if id.IsFinal {
			finals = append(finals, id)
		}
	}
	require.Len(t, finals, 1)
	assert.Equal(t, 1, finals[0].RevisionRound)
}

func TestDownloadManifestRequiresCompleteSession(t *testing.T) {
	pub := &capturingPublisher{}
	svc, sessions := newTestService(&queueProvider{}, &mapSearcher{}, pub)

	session, _ := svc.CreateSession(context.Background())
	_, err := svc.DownloadManifest(context.Background(), session.ID)
	assert.True(t, deck.IsInvalidTransition(err))

	session.Status = store.StatusComplete
	session.Deck = []store.ResolvedSlide{{Position: 1, SessionCode: "LIB", SlideNumber: 2}}
	session.AllSlides = library(3)
	sessions.Save(session)

	decks, err := svc.DownloadManifest(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Reference Deck", decks[0].Title)
}
