package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"deck-builder-be/internal/pkg/logger"
	"deck-builder-be/internal/repository/memory"
	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/deck/agent"
	"deck-builder-be/pkg/deck/compile"
	wfevents "deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/deck/selection"
	"deck-builder-be/pkg/deck/trace"
	"deck-builder-be/pkg/llm"
	"deck-builder-be/pkg/store"

	"github.com/google/uuid"
)

// IDeckService drives the deck-building workflow: outline, per-position
// slide selection, revision and compilation. Stages run asynchronously; all
// progress streams through the event bus.
type IDeckService interface {
	CreateSession(ctx context.Context) (*store.DeckSession, error)
	StartDeck(ctx context.Context, sessionID, request string) error
	ConfirmOutline(ctx context.Context, sessionID string, outline *store.Outline, allSlides []store.SlideCandidate) error
	GetSession(ctx context.Context, sessionID string) (*store.DeckSession, error)
	GetTrace(ctx context.Context, sessionID string) ([]trace.Entry, error)
	DownloadManifest(ctx context.Context, sessionID string) ([]store.SourceDeck, error)
}

type deckService struct {
	sessions   *memory.SessionRepository
	searcher   deck.SlideSearcher
	provider   llm.LLMProvider
	policy     deck.Policy
	publisher  IEventPublisherService
	traceStore *trace.Store
	logger     logger.ILogger

	// Guards session status transitions; stage goroutines take it only for
	// the transition itself, never across reasoning or retrieval calls.
	mu sync.Mutex
}

func NewDeckService(
	sessions *memory.SessionRepository,
	searcher deck.SlideSearcher,
	provider llm.LLMProvider,
	policy deck.Policy,
	publisher IEventPublisherService,
	traceStore *trace.Store,
	log logger.ILogger,
) IDeckService {
	return &deckService{
		sessions:   sessions,
		searcher:   searcher,
		provider:   provider,
		policy:     policy,
		publisher:  publisher,
		traceStore: traceStore,
		logger:     log,
	}
}

func (s *deckService) emit(sessionID string, rec wfevents.Record) {
	s.publisher.Emit(sessionID, rec)
}

// agentsFor binds the shared provider to a session's trace stream.
func (s *deckService) agentsFor(sessionID string) *agent.Agents {
	agents := agent.New(s.provider)
	agents.Timeout = time.Duration(s.policy.GatewayTimeoutSeconds) * time.Second
	agents.Trace = func(rec wfevents.Record) {
		s.emit(sessionID, rec)
	}
	return agents
}

func (s *deckService) selectorFor(sessionID string, agents *agent.Agents) *selection.Selector {
	return &selection.Selector{
		Agents: agents,
		Search: s.searcher,
		Policy: s.policy,
		Emit: func(rec wfevents.Record) {
			s.emit(sessionID, rec)
		},
	}
}

func (s *deckService) CreateSession(_ context.Context) (*store.DeckSession, error) {
	session := &store.DeckSession{
		ID:           uuid.New().String(),
		Status:       store.StatusIdle,
		SelectedKeys: make(map[string]bool),
		CreatedAt:    time.Now(),
	}
	s.sessions.Save(session)

	s.logger.Info("DeckService", "Session created", map[string]interface{}{"session_id": session.ID})
	return session, nil
}

func (s *deckService) StartDeck(_ context.Context, sessionID, request string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions.Get(sessionID)
	if !found {
		return deck.ErrUnknownSession
	}
	if session.Status != store.StatusIdle {
		return &deck.InvalidTransitionError{From: session.Status, Op: "start_deck"}
	}

	session.Request = request
	session.Status = store.StatusOutlineRunning
	s.sessions.Save(session)

	go s.runOutline(sessionID, request)
	return nil
}

func (s *deckService) ConfirmOutline(_ context.Context, sessionID string, outline *store.Outline, allSlides []store.SlideCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions.Get(sessionID)
	if !found {
		return deck.ErrUnknownSession
	}
	if session.Status != store.StatusOutlinePending {
		return &deck.InvalidTransitionError{From: session.Status, Op: "confirm_outline"}
	}

	// The client may have edited the outline; its version wins. Positions
	// are renumbered so they stay dense and ascending.
	if outline != nil && len(outline.Slides) > 0 {
		outline.Renumber()
		session.Outline = outline
	}
	if len(allSlides) > 0 {
		session.AllSlides = allSlides
	}
	if session.Outline == nil || len(session.Outline.Slides) == 0 {
		return &deck.InvalidTransitionError{From: session.Status, Op: "confirm_outline"}
	}

	session.Status = store.StatusSlideSelection
	s.sessions.Save(session)

	s.emit(sessionID, wfevents.Plain{Event: wfevents.OutlineConfirmed{
		Type:       wfevents.TypeOutlineConfirmed,
		Title:      session.Outline.Title,
		SlideCount: len(session.Outline.Slides),
	}})

	go s.runBuild(sessionID)
	return nil
}

func (s *deckService) GetSession(_ context.Context, sessionID string) (*store.DeckSession, error) {
	session, found := s.sessions.Get(sessionID)
	if !found {
		return nil, deck.ErrUnknownSession
	}
	return session, nil
}

func (s *deckService) GetTrace(_ context.Context, sessionID string) ([]trace.Entry, error) {
	if _, found := s.sessions.Get(sessionID); !found {
		return nil, deck.ErrUnknownSession
	}
	return s.traceStore.Get(sessionID), nil
}

func (s *deckService) DownloadManifest(_ context.Context, sessionID string) ([]store.SourceDeck, error) {
	session, found := s.sessions.Get(sessionID)
	if !found {
		return nil, deck.ErrUnknownSession
	}
	if session.Status != store.StatusComplete {
		return nil, &deck.InvalidTransitionError{From: session.Status, Op: "download"}
	}
	return compile.SourceDecks(compile.SortDeck(session.Deck), session.AllSlides), nil
}

// runOutline is the outline stage: initial search over the slide library,
// then the outline agent, then halt for confirmation.
func (s *deckService) runOutline(sessionID, request string) {
	ctx := context.Background()

	s.emit(sessionID, wfevents.PhaseChanged{Phase: "outline", Description: "Generating presentation outline"})

	allSlides, err := s.initialSearch(ctx, sessionID, request)
	if err != nil {
		s.failSession(sessionID, err)
		return
	}
	if len(allSlides) == 0 {
		s.failSession(sessionID, fmt.Errorf("no relevant slides found for this request"))
		return
	}

	outline, err := s.agentsFor(sessionID).GenerateOutline(ctx, request, allSlides)
	if err != nil {
		s.failSession(sessionID, err)
		return
	}

	s.mu.Lock()
	session, found := s.sessions.Get(sessionID)
	if !found {
		s.mu.Unlock()
		return
	}
	session.Outline = outline
	session.AllSlides = allSlides
	session.Status = store.StatusOutlinePending
	s.sessions.Save(session)
	s.mu.Unlock()

	s.emit(sessionID, wfevents.Plain{Event: wfevents.OutlinePending{
		Type:      wfevents.TypeOutlinePending,
		Title:     outline.Title,
		Narrative: outline.Narrative,
		Slides:    outline.Slides,
		AllSlides: allSlides,
	}})
	s.emit(sessionID, wfevents.Plain{Event: wfevents.AwaitingConfirmation{Type: wfevents.TypeAwaitingConfirmation}})
}

// initialSearch builds the candidate universe: a broad search on the full
// request, widened with a sub-query of its first half when the request is
// long enough.
func (s *deckService) initialSearch(ctx context.Context, sessionID, query string) ([]store.SlideCandidate, error) {
	start := time.Now()
	results, err := s.searcher.Search(ctx, query, s.policy.InitialSearchLimit)
	if err != nil {
		return nil, err
	}
	s.emit(sessionID, wfevents.SearchPerformed{
		Query:       query,
		ResultCount: len(results),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	words := strings.Fields(query)
	if len(words) <= 2 {
		return results, nil
	}

	subQuery := strings.Join(words[:len(words)/2], " ")
	subResults, err := s.searcher.Search(ctx, subQuery, s.policy.SearchLimit)
	if err != nil {
		// The widened query is best-effort
		s.logger.Warn("DeckService", "Sub-query search failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return results, nil
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.Key()] = true
	}
	for _, r := range subResults {
		if !seen[r.Key()] {
			results = append(results, r)
			seen[r.Key()] = true
		}
	}
	return results, nil
}

// runBuild is the selection stage followed by revision and compilation.
// Progress is saved after every position, so a mid-build failure keeps
// everything resolved so far.
func (s *deckService) runBuild(sessionID string) {
	ctx := context.Background()

	session, found := s.sessions.Get(sessionID)
	if !found {
		return
	}
	outline := session.Outline
	allSlides := session.AllSlides
	if session.SelectedKeys == nil {
		session.SelectedKeys = make(map[string]bool)
	}

	agents := s.agentsFor(sessionID)
	selector := s.selectorFor(sessionID, agents)

	s.emit(sessionID, wfevents.PhaseChanged{Phase: "slide_selection", Description: "Selecting slides for each outline position"})

	for _, item := range outline.Slides {
		s.emit(sessionID, wfevents.PositionOpened{
			Position: item.Position,
			Topic:    item.Topic,
			Total:    len(outline.Slides),
			Graph:    selection.WorkflowGraph,
		})

		result, err := selector.SelectSlide(ctx, item, outline, allSlides, session.SelectedKeys)
		if err != nil {
			s.failSession(sessionID, err)
			return
		}

		if result.Slide != nil {
			resolved := *result.Slide
			resolved.Reason = prefixReason(item.Purpose, resolved.Reason)
			session.ReplaceResolved(resolved)
			s.sessions.Save(session)

			selected := wfevents.SlideSelected{
				Type:     wfevents.TypeSlideSelected,
				Position: item.Position,
				Slide:    resolved,
			}
			s.emit(sessionID, wfevents.PositionClosed{
				Position: item.Position,
				Topic:    item.Topic,
				Attempts: result.Attempts,
				Resolved: &selected,
			})
		} else {
			s.emit(sessionID, wfevents.PositionClosed{
				Position: item.Position,
				Topic:    item.Topic,
				Attempts: result.Attempts,
			})
		}

		s.emit(sessionID, wfevents.Plain{Event: wfevents.IntermediateDeck{
			Type:          wfevents.TypeIntermediateDeck,
			Deck:          compile.SortDeck(session.Deck),
			Narrative:     outline.Narrative,
			RevisionRound: 0,
			IsFinal:       false,
		}})
	}

	if len(session.Deck) > 0 && s.policy.MaxRevisionRounds > 0 {
		s.setStatus(session, store.StatusRevising)
		s.emit(sessionID, wfevents.PhaseChanged{Phase: "revision", Description: "Reviewing the assembled deck"})

		for round := 1; round <= s.policy.MaxRevisionRounds; round++ {
			s.runRevisionRound(ctx, sessionID, session, agents, selector, round)
			s.emit(sessionID, wfevents.Plain{Event: wfevents.IntermediateDeck{
				Type:          wfevents.TypeIntermediateDeck,
				Deck:          compile.SortDeck(session.Deck),
				Narrative:     outline.Narrative,
				RevisionRound: round,
				IsFinal:       round == s.policy.MaxRevisionRounds,
			}})
		}
	}

	s.setStatus(session, store.StatusCompiling)
	s.emit(sessionID, wfevents.PhaseChanged{Phase: "compile", Description: "Compiling the final deck"})

	finalDeck := compile.SortDeck(session.Deck)
	s.emit(sessionID, wfevents.Plain{Event: wfevents.DeckCompiled{
		Type:      wfevents.TypeDeckCompiled,
		Slides:    finalDeck,
		Narrative: outline.Narrative,
	}})
	s.emit(sessionID, wfevents.Plain{Event: wfevents.DownloadInfo{
		Type:  wfevents.TypeDownloadInfo,
		Decks: compile.SourceDecks(finalDeck, allSlides),
	}})

	s.setStatus(session, store.StatusComplete)
	s.emit(sessionID, wfevents.Plain{Event: wfevents.Complete{Type: wfevents.TypeComplete}})

	s.logger.Info("DeckService", "Deck build complete", map[string]interface{}{
		"session_id": sessionID,
		"slides":     len(finalDeck),
	})
}

// runRevisionRound asks the reviser for per-position decisions and reruns
// selection for every slide marked to-be-replaced. Each position is replaced
// at most once per round, and a failed replacement keeps the original slide.
func (s *deckService) runRevisionRound(ctx context.Context, sessionID string, session *store.DeckSession, agents *agent.Agents, selector *selection.Selector, round int) {
	revision, err := agents.ReviseDeck(ctx, session.Outline, compile.SortDeck(session.Deck))
	if err != nil {
		// Revision is an improvement pass, not a gate: a failed reviser
		// leaves the deck as selected.
		s.logger.Warn("DeckService", "Revision pass skipped", map[string]interface{}{
			"session_id": sessionID,
			"round":      round,
			"error":      err.Error(),
		})
		return
	}

	session.RevisionRound = round
	session.Reviews = make(map[int]store.SlideReview, len(revision.Decisions))
	for _, d := range revision.Decisions {
		session.Reviews[d.Position] = d
	}
	s.sessions.Save(session)

	s.emit(sessionID, wfevents.Plain{Event: wfevents.RevisionProgress{
		Type:           wfevents.TypeRevisionProgress,
		RevisionRound:  round,
		Feedback:       revision.Feedback,
		SlideDecisions: revision.Decisions,
	}})

	for _, decision := range revision.Decisions {
		if decision.Status != store.ReviewToBeReplaced {
			continue
		}

		item, ok := outlineItemAt(session.Outline, decision.Position)
		if !ok {
			continue
		}
		if decision.SearchSuggestion != "" {
			item.SearchHints = append([]string{decision.SearchSuggestion}, item.SearchHints...)
		}

		result, err := selector.SelectSlide(ctx, item, session.Outline, session.AllSlides, session.SelectedKeys)
		if err != nil || result.Slide == nil {
			s.logger.Warn("DeckService", "No replacement found, keeping original slide", map[string]interface{}{
				"session_id": sessionID,
				"position":   decision.Position,
			})
			continue
		}

		replacement := *result.Slide
		replacement.Reason = prefixReason(item.Purpose, replacement.Reason)
		session.ReplaceResolved(replacement)
		s.sessions.Save(session)

		s.emit(sessionID, wfevents.Plain{Event: wfevents.SlideSelected{
			Type:     wfevents.TypeSlideSelected,
			Position: decision.Position,
			Slide:    replacement,
		}})
	}
}

func (s *deckService) setStatus(session *store.DeckSession, status string) {
	s.mu.Lock()
	session.Status = status
	s.sessions.Save(session)
	s.mu.Unlock()
}

// failSession marks the session failed and emits the stream's single error
// event. Partial progress stays on the session; nothing is rolled back.
func (s *deckService) failSession(sessionID string, cause error) {
	s.mu.Lock()
	session, found := s.sessions.Get(sessionID)
	if found {
		session.Status = store.StatusFailed
		session.LastError = cause.Error()
		s.sessions.Save(session)
	}
	s.mu.Unlock()

	s.logger.Error("DeckService", "Stage failed", map[string]interface{}{
		"session_id": sessionID,
		"error":      cause.Error(),
	})
	s.emit(sessionID, wfevents.Plain{Event: wfevents.Error{
		Type:    wfevents.TypeError,
		Message: cause.Error(),
	}})
}

func prefixReason(purpose, reason string) string {
	if purpose == "" {
		return reason
	}
	return purpose + " - " + reason
}

func outlineItemAt(outline *store.Outline, position int) (store.OutlineSlide, bool) {
	for _, item := range outline.Slides {
		if item.Position == position {
			return item, true
		}
	}
	return store.OutlineSlide{}, false
}
