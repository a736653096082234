package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/deck/agent"
	"deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/llm"
	"deck-builder-be/pkg/store"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (f *scriptedProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	f.calls++
	if len(f.responses) == 0 {
		return "", fmt.Errorf("unexpected call %d", f.calls)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, nil, opts...)
}

type fakeSearcher struct {
	results map[string][]store.SlideCandidate
	all     []store.SlideCandidate
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]store.SlideCandidate, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return f.all, nil
}

type eventSink struct {
	events []events.Event
}

func (s *eventSink) record(rec events.Record) {
	s.events = append(s.events, rec.Project(true)...)
}

func (s *eventSink) ofType(t string) []events.Event {
	var out []events.Event
	for _, ev := range s.events {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

func slides(n int) []store.SlideCandidate {
	out := make([]store.SlideCandidate, n)
	for i := range out {
		out[i] = store.SlideCandidate{
			SessionCode: "S01",
			SlideNumber: i + 1,
			Title:       fmt.Sprintf("Slide %d", i+1),
			Content:     "content",
		}
	}
	return out
}

func outlineItem() (store.OutlineSlide, *store.Outline) {
	outline := &store.Outline{
		Title:     "Demo Deck",
		Narrative: "A walkthrough",
		Slides: []store.OutlineSlide{
			{Position: 1, Topic: "Introduction", Purpose: "Set context", SearchHints: []string{"What is the product?"}},
		},
	}
	return outline.Slides[0], outline
}

func newSelector(provider llm.LLMProvider, searcher deck.SlideSearcher, sink *eventSink, maxAttempts int) *Selector {
	policy := deck.DefaultPolicy()
	policy.MaxAttempts = maxAttempts
	return &Selector{
		Agents: agent.New(provider),
		Search: searcher,
		Policy: policy,
		Emit:   sink.record,
	}
}

func TestSelectSlideApprovedFirstAttempt(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(3)}
	provider := &scriptedProvider{responses: []string{
		`{"session_code": "S01", "slide_number": 2, "reason": "Covers the intro"}`,
		`{"approved": true, "feedback": "Good match"}`,
	}}
	sink := &eventSink{}

	result, err := newSelector(provider, searcher, sink, 3).SelectSlide(context.Background(), item, outline, searcher.all, map[string]bool{})
	require.NoError(t, err)
	require.NotNil(t, result.Slide)

	assert.Equal(t, "S01", result.Slide.SessionCode)
	assert.Equal(t, 2, result.Slide.SlideNumber)
	assert.Equal(t, 1, result.Slide.Attempts)
	assert.False(t, result.Slide.ViaJudge)

	// First search comes from the outline hint
	assert.Equal(t, "What is the product?", searcher.queries[0])
	assert.Len(t, sink.ofType(events.TypeSlideOffered), 1)
	assert.Len(t, sink.ofType(events.TypeSlideCritiqued), 1)
	assert.Empty(t, sink.ofType(events.TypeJudgeInvoked))
}

func TestSelectSlideEscalatesToJudgeAfterMaxAttempts(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(5)}
	provider := &scriptedProvider{responses: []string{
		`{"session_code": "S01", "slide_number": 1, "reason": "first try"}`,
		`{"approved": false, "feedback": "Too shallow", "search_suggestion": "What are the fundamentals?"}`,
		`{"session_code": "S01", "slide_number": 2, "reason": "second try"}`,
		`{"approved": false, "feedback": "Off narrative"}`,
		`{"session_code": "S01", "slide_number": 2, "reason": "Least bad option"}`, // judge
	}}
	sink := &eventSink{}

	result, err := newSelector(provider, searcher, sink, 2).SelectSlide(context.Background(), item, outline, searcher.all, map[string]bool{})
	require.NoError(t, err)
	require.NotNil(t, result.Slide)

	assert.True(t, result.Slide.ViaJudge)
	assert.Equal(t, 2, result.Slide.SlideNumber)
	assert.Contains(t, result.Slide.Reason, "Judge selected")

	// Critique count never exceeds the attempt bound, judge runs at most once
	assert.Len(t, sink.ofType(events.TypeSlideCritiqued), 2)
	assert.Len(t, sink.ofType(events.TypeJudgeInvoked), 1)

	// Rejection feeds the critique's suggestion into the next search
	assert.Contains(t, searcher.queries, "What are the fundamentals?")
}

func TestSelectSlideJudgeFallbackToLastAttempt(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(3)}
	provider := &scriptedProvider{responses: []string{
		`{"session_code": "S01", "slide_number": 1, "reason": "only try"}`,
		`{"approved": false, "feedback": "No"}`,
		`not json at all`, // judge fails to produce a selection
	}}
	sink := &eventSink{}

	result, err := newSelector(provider, searcher, sink, 1).SelectSlide(context.Background(), item, outline, searcher.all, map[string]bool{})
	require.NoError(t, err)
	require.NotNil(t, result.Slide)
	assert.Equal(t, 1, result.Slide.SlideNumber)
	assert.Contains(t, result.Slide.Reason, "Fallback:")
}

func TestSelectSlideNoCandidates(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: nil}
	sink := &eventSink{}

	result, err := newSelector(&scriptedProvider{}, searcher, sink, 3).SelectSlide(context.Background(), item, outline, nil, map[string]bool{})
	require.NoError(t, err)
	assert.Nil(t, result.Slide)
	assert.Empty(t, sink.ofType(events.TypeSlideOffered))
}

func TestSelectSlideRetrievalUnavailable(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{err: errors.New("index offline")}
	sink := &eventSink{}

	_, err := newSelector(&scriptedProvider{}, searcher, sink, 2).SelectSlide(context.Background(), item, outline, nil, map[string]bool{})
	require.Error(t, err)
	assert.ErrorIs(t, err, deck.ErrRetrievalUnavailable)
}

func TestSelectSlideOfferFailureAutoSelectsTopResult(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(2)}
	provider := &scriptedProvider{responses: []string{
		`I refuse to answer in JSON`,
		`{"approved": true, "feedback": "Fine"}`,
	}}
	sink := &eventSink{}

	result, err := newSelector(provider, searcher, sink, 3).SelectSlide(context.Background(), item, outline, searcher.all, map[string]bool{})
	require.NoError(t, err)
	require.NotNil(t, result.Slide)
	assert.Equal(t, 1, result.Slide.SlideNumber)
	assert.Equal(t, "Auto-selected top search result", result.Slide.Reason)
}

func TestSelectSlideRejectedSlideNotReoffered(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(2)}
	provider := &scriptedProvider{responses: []string{
		`{"session_code": "S01", "slide_number": 1, "reason": "first"}`,
		`{"approved": false, "feedback": "Wrong"}`,
		`{"session_code": "S01", "slide_number": 1, "reason": "again"}`, // points at rejected slide
		`{"approved": true, "feedback": "ok"}`,
	}}
	sink := &eventSink{}

	result, err := newSelector(provider, searcher, sink, 3).SelectSlide(context.Background(), item, outline, nil, map[string]bool{})
	require.NoError(t, err)
	require.NotNil(t, result.Slide)

	// Slide 1 was rejected, so even though the agent names it again the
	// offer falls back to the remaining candidate.
	assert.Equal(t, 2, result.Slide.SlideNumber)
}

func TestSelectSlideSkipsAlreadyPlacedSlides(t *testing.T) {
	item, outline := outlineItem()
	searcher := &fakeSearcher{all: slides(2)}
	provider := &scriptedProvider{responses: []string{
		`{"session_code": "S01", "slide_number": 2, "reason": "pick"}`,
		`{"approved": true, "feedback": "ok"}`,
	}}
	sink := &eventSink{}

	placed := map[string]bool{store.SlideKey("S01", 1): true}
	result, err := newSelector(provider, searcher, sink, 3).SelectSlide(context.Background(), item, outline, searcher.all, placed)
	require.NoError(t, err)
	require.NotNil(t, result.Slide)
	assert.Equal(t, 2, result.Slide.SlideNumber)
}
