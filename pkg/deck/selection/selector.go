// Package selection runs the bounded search/offer/critique/judge loop that
// resolves one outline position to a concrete slide.
package selection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/deck/agent"
	"deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/store"
)

const fallbackSearchLimit = 5

// WorkflowGraph describes the loop for the verbose stream.
const WorkflowGraph = "search -> offer -> critique -> (approve: done | reject: search) -> judge (attempts exhausted)"

type phase int

const (
	phaseSearch phase = iota
	phaseOffer
	phaseCritique
	phaseJudge
	phaseDone
)

// Selector resolves outline positions against the slide library.
type Selector struct {
	Agents *agent.Agents
	Search deck.SlideSearcher
	Policy deck.Policy
	Emit   func(rec events.Record)
}

// Result is the outcome of one position. Slide is nil when no acceptable
// slide exists, which is a valid outcome rather than an error.
type Result struct {
	Slide    *store.ResolvedSlide
	Attempts int
}

type state struct {
	query            string
	candidates       []store.SlideCandidate
	previousSearches []string
	attempt          int
	selection        *agent.Selection
	selectionSlide   store.SlideCandidate
	history          []agent.AttemptRecord
	resolved         *store.ResolvedSlide
	searchErrors     int
	searchSuccesses  int
	rejectedKeys     map[string]bool
}

func (s *Selector) emit(rec events.Record) {
	if s.Emit != nil {
		s.Emit(rec)
	}
}

// SelectSlide runs the selection loop for one position. selectedKeys holds
// slides already placed at earlier positions; they are never offered again.
func (s *Selector) SelectSlide(ctx context.Context, item store.OutlineSlide, outline *store.Outline, allSlides []store.SlideCandidate, selectedKeys map[string]bool) (Result, error) {
	st := &state{rejectedKeys: make(map[string]bool)}

	current := phaseSearch
	for current != phaseDone {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: st.attempt}, err
		}

		var err error
		switch current {
		case phaseSearch:
			current, err = s.searchPhase(ctx, item, selectedKeys, st)
		case phaseOffer:
			current = s.offerPhase(ctx, item, outline, allSlides, st)
		case phaseCritique:
			current = s.critiquePhase(ctx, item, outline, st)
		case phaseJudge:
			return s.judgePhase(ctx, item, allSlides, st), nil
		}
		if err != nil {
			return Result{Attempts: st.attempt}, err
		}
	}

	return Result{Slide: st.resolved, Attempts: st.attempt}, nil
}

// searchPhase picks a query, runs retrieval and filters out slides that are
// already placed or were rejected earlier for this position.
func (s *Selector) searchPhase(ctx context.Context, item store.OutlineSlide, selectedKeys map[string]bool, st *state) (phase, error) {
	st.query = s.nextQuery(item, st)

	if !containsFold(st.previousSearches, st.query) {
		st.previousSearches = append(st.previousSearches, st.query)
	}

	candidates, err := s.runSearch(ctx, st.query, s.Policy.SearchLimit, item.Position, st)
	if err != nil {
		// Retrieval failure burns the attempt. A position where retrieval
		// never worked at all fails the stage instead of silently resolving
		// to nothing.
		st.attempt++
		if st.attempt >= s.Policy.MaxAttempts {
			if st.searchSuccesses == 0 && len(st.history) == 0 {
				return phaseDone, fmt.Errorf("position %d: %w: %s", item.Position, deck.ErrRetrievalUnavailable, err)
			}
			if len(st.history) > 0 {
				return phaseJudge, nil
			}
			return phaseDone, nil
		}
		return phaseSearch, nil
	}

	st.candidates = filterCandidates(candidates, selectedKeys, st.rejectedKeys)

	// Nothing usable: one fallback search on the raw topic
	if len(st.candidates) == 0 && !strings.EqualFold(st.query, item.Topic) {
		fallback, ferr := s.runSearch(ctx, item.Topic, fallbackSearchLimit, item.Position, st)
		if ferr == nil {
			st.candidates = filterCandidates(fallback, selectedKeys, st.rejectedKeys)
		}
	}

	if len(st.candidates) == 0 {
		if len(st.history) > 0 {
			return phaseJudge, nil
		}
		return phaseDone, nil
	}
	return phaseOffer, nil
}

func (s *Selector) runSearch(ctx context.Context, query string, limit, position int, st *state) ([]store.SlideCandidate, error) {
	searchCtx := ctx
	if s.Policy.GatewayTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, time.Duration(s.Policy.GatewayTimeoutSeconds)*time.Second)
		defer cancel()
	}

	start := time.Now()
	candidates, err := s.Search.Search(searchCtx, query, limit)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		st.searchErrors++
		return nil, err
	}

	st.searchSuccesses++
	s.emit(events.SearchPerformed{
		Position:    position,
		Query:       query,
		ResultCount: len(candidates),
		Round:       st.attempt + 1,
		DurationMs:  elapsed,
	})
	return candidates, nil
}

// nextQuery follows the retry ladder: first the outline hint, then the
// critique's suggestion when it is new, then hint rotation, then the topic.
func (s *Selector) nextQuery(item store.OutlineSlide, st *state) string {
	if st.attempt == 0 {
		if len(item.SearchHints) > 0 {
			return item.SearchHints[0]
		}
		return item.Topic
	}

	if len(st.history) > 0 {
		suggested := st.history[len(st.history)-1].Critique.SearchSuggestion
		if suggested != "" && !containsFold(st.previousSearches, suggested) {
			return suggested
		}
	}

	if len(item.SearchHints) > 0 {
		return item.SearchHints[st.attempt%len(item.SearchHints)]
	}
	return item.Topic
}

// offerPhase asks the offer agent for a pick, validating it against the
// candidate set and the session's candidate universe. When the agent fails
// or picks a slide that does not exist, the top search result is offered
// instead.
func (s *Selector) offerPhase(ctx context.Context, item store.OutlineSlide, outline *store.Outline, allSlides []store.SlideCandidate, st *state) phase {
	if st.attempt >= s.Policy.MaxAttempts {
		return phaseJudge
	}
	if len(st.candidates) == 0 {
		return phaseDone
	}

	forAgent := st.candidates
	if len(forAgent) > s.Policy.MaxCandidatesForOffer {
		forAgent = forAgent[:s.Policy.MaxCandidatesForOffer]
	}

	st.selection = nil
	selection, err := s.Agents.OfferSlide(ctx, item, outline, forAgent, st.history)
	if err == nil && selection != nil {
		if slide, ok := findCandidate(selection.SessionCode, selection.SlideNumber, st.candidates, allSlides); ok {
			st.selection = selection
			st.selectionSlide = slide
		}
	}

	if st.selection == nil {
		first := st.candidates[0]
		st.selection = &agent.Selection{
			SessionCode: first.SessionCode,
			SlideNumber: first.SlideNumber,
			Reason:      "Auto-selected top search result",
		}
		st.selectionSlide = first
	}

	s.emit(events.Plain{Event: events.SlideOffered{
		Type:        events.TypeSlideOffered,
		Position:    item.Position,
		Attempt:     st.attempt + 1,
		SessionCode: st.selection.SessionCode,
		SlideNumber: st.selection.SlideNumber,
		Title:       st.selectionSlide.Title,
		Reason:      st.selection.Reason,
	}})
	return phaseCritique
}

func (s *Selector) critiquePhase(ctx context.Context, item store.OutlineSlide, outline *store.Outline, st *state) phase {
	critique := s.Agents.CritiqueSlide(ctx, item, outline, st.selectionSlide, st.selection.Reason, st.previousSearches)

	st.history = append(st.history, agent.AttemptRecord{
		Attempt:     st.attempt + 1,
		SearchQuery: st.query,
		Selected:    *st.selection,
		Title:       st.selectionSlide.Title,
		Critique:    critique,
	})

	s.emit(events.Plain{Event: events.SlideCritiqued{
		Type:             events.TypeSlideCritiqued,
		Position:         item.Position,
		Attempt:          st.attempt + 1,
		SessionCode:      st.selection.SessionCode,
		SlideNumber:      st.selection.SlideNumber,
		SlideTitle:       st.selectionSlide.Title,
		ThumbnailUrl:     store.ThumbnailPath(st.selection.SessionCode, st.selection.SlideNumber),
		Approved:         critique.Approved,
		Feedback:         critique.Feedback,
		SearchSuggestion: critique.SearchSuggestion,
	}})

	if critique.Approved {
		st.resolved = &store.ResolvedSlide{
			Position:    item.Position,
			SessionCode: st.selection.SessionCode,
			SlideNumber: st.selection.SlideNumber,
			Title:       st.selectionSlide.Title,
			Reason:      st.selection.Reason,
			Attempts:    st.attempt + 1,
		}
		st.attempt++
		return phaseDone
	}

	st.rejectedKeys[store.SlideKey(st.selection.SessionCode, st.selection.SlideNumber)] = true
	st.selection = nil
	st.attempt++
	if st.attempt >= s.Policy.MaxAttempts {
		return phaseJudge
	}
	return phaseSearch
}

// judgePhase picks the least problematic slide among everything attempted.
// When the judge itself fails, the last attempted slide wins.
func (s *Selector) judgePhase(ctx context.Context, item store.OutlineSlide, allSlides []store.SlideCandidate, st *state) Result {
	if len(st.history) == 0 {
		return Result{Attempts: st.attempt}
	}

	var (
		picked agent.Selection
		reason string
	)

	selection, err := s.Agents.JudgeSlides(ctx, item, st.history)
	if err == nil && selection != nil {
		for _, h := range st.history {
			if h.Selected.SessionCode == selection.SessionCode && h.Selected.SlideNumber == selection.SlideNumber {
				picked = h.Selected
				reason = "Judge selected: " + selection.Reason
				break
			}
		}
	}

	if reason == "" {
		last := st.history[len(st.history)-1].Selected
		picked = last
		reason = "Fallback: " + last.Reason
	}

	s.emit(events.Plain{Event: events.JudgeInvoked{
		Type:            events.TypeJudgeInvoked,
		Position:        item.Position,
		CandidatesCount: len(st.history),
		SelectedCode:    picked.SessionCode,
		SelectedNumber:  picked.SlideNumber,
		Reason:          reason,
	}})

	title := ""
	if slide, ok := findCandidate(picked.SessionCode, picked.SlideNumber, nil, allSlides); ok {
		title = slide.Title
	} else {
		for _, h := range st.history {
			if h.Selected.SessionCode == picked.SessionCode && h.Selected.SlideNumber == picked.SlideNumber {
				title = h.Title
			}
		}
	}

	return Result{
		Slide: &store.ResolvedSlide{
			Position:    item.Position,
			SessionCode: picked.SessionCode,
			SlideNumber: picked.SlideNumber,
			Title:       title,
			Reason:      reason,
			Attempts:    st.attempt,
			ViaJudge:    true,
		},
		Attempts: st.attempt,
	}
}

func filterCandidates(candidates []store.SlideCandidate, selectedKeys, rejectedKeys map[string]bool) []store.SlideCandidate {
	filtered := make([]store.SlideCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if selectedKeys[key] || rejectedKeys[key] {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func findCandidate(code string, number int, candidates, allSlides []store.SlideCandidate) (store.SlideCandidate, bool) {
	for _, c := range candidates {
		if c.SessionCode == code && c.SlideNumber == number {
			return c, true
		}
	}
	for _, c := range allSlides {
		if c.SessionCode == code && c.SlideNumber == number {
			return c, true
		}
	}
	return store.SlideCandidate{}, false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
