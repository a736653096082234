package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/llm"
	"deck-builder-be/pkg/store"
)

// fakeProvider returns scripted responses in order.
type fakeProvider struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, history[len(history)-1].Content)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func testOutline() *store.Outline {
	return &store.Outline{
		Title:     "Platform Overview",
		Narrative: "From basics to best practices",
		Slides: []store.OutlineSlide{
			{Position: 1, Topic: "Introduction", Purpose: "Set the stage", SearchHints: []string{"What is the platform?"}},
			{Position: 2, Topic: "Architecture", Purpose: "Show the design"},
		},
	}
}

func TestGenerateOutlineParsesAndRenumbers(t *testing.T) {
	provider := &fakeProvider{responses: []string{`Here is your outline:
{"title": "Intro Deck", "narrative": "A story", "slides": [
  {"position": 3, "topic": "Opening", "search_hints": ["What is X?"], "purpose": "Hook"},
  {"position": 3, "topic": "Details", "search_hints": [], "purpose": "Depth"}
]}`}}
	agents := New(provider)

	outline, err := agents.GenerateOutline(context.Background(), "intro to X", nil)
	require.NoError(t, err)

	assert.Equal(t, "Intro Deck", outline.Title)
	require.Len(t, outline.Slides, 2)
	assert.Equal(t, 1, outline.Slides[0].Position)
	assert.Equal(t, 2, outline.Slides[1].Position)
}

func TestGenerateOutlineProviderDown(t *testing.T) {
	agents := New(&fakeProvider{err: errors.New("connection refused")})

	_, err := agents.GenerateOutline(context.Background(), "anything", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, deck.ErrReasoningUnavailable)
}

// slowProvider blocks until its delay elapses or the call context expires.
type slowProvider struct {
	delay time.Duration
}

func (s *slowProvider) Chat(ctx context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	select {
	case <-time.After(s.delay):
		return `{"title": "late", "narrative": "", "slides": []}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *slowProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func TestGenerateOutlineHonorsCallTimeout(t *testing.T) {
	agents := New(&slowProvider{delay: 10 * time.Second})
	agents.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := agents.GenerateOutline(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, deck.ErrReasoningUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerateOutlineGarbageResponse(t *testing.T) {
	agents := New(&fakeProvider{responses: []string{"I cannot help with that."}})

	_, err := agents.GenerateOutline(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, deck.ErrReasoningUnavailable)
}

func TestOfferSlideParsesSelection(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"session_code": "S01", "slide_number": 7, "reason": "Directly covers the topic"}`}}
	agents := New(provider)

	candidates := []store.SlideCandidate{{SessionCode: "S01", SlideNumber: 7, Title: "Overview"}}
	selection, err := agents.OfferSlide(context.Background(), testOutline().Slides[0], testOutline(), candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, "S01", selection.SessionCode)
	assert.Equal(t, 7, selection.SlideNumber)
}

func TestOfferSlideIncludesHistoryInPrompt(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"session_code": "S02", "slide_number": 1, "reason": "ok"}`}}
	agents := New(provider)

	history := []AttemptRecord{{
		Selected: Selection{SessionCode: "S01", SlideNumber: 7},
		Critique: Critique{Feedback: "Too generic"},
	}}
	_, err := agents.OfferSlide(context.Background(), testOutline().Slides[0], testOutline(), []store.SlideCandidate{{SessionCode: "S02", SlideNumber: 1}}, history)
	require.NoError(t, err)
	assert.Contains(t, provider.prompts[0], "PREVIOUS ATTEMPTS")
	assert.Contains(t, provider.prompts[0], "Too generic")
}

func TestCritiqueSlideApproveAndReject(t *testing.T) {
	slide := store.SlideCandidate{SessionCode: "S01", SlideNumber: 7, Title: "Overview", Content: "Platform basics"}

	approve := New(&fakeProvider{responses: []string{`{"approved": true, "feedback": "Good fit"}`}})
	critique := approve.CritiqueSlide(context.Background(), testOutline().Slides[0], testOutline(), slide, "covers topic", nil)
	assert.True(t, critique.Approved)

	reject := New(&fakeProvider{responses: []string{`{"approved": false, "feedback": "Wrong product", "search_suggestion": "What are the basics of X?"}`}})
	critique = reject.CritiqueSlide(context.Background(), testOutline().Slides[0], testOutline(), slide, "covers topic", []string{"earlier query"})
	assert.False(t, critique.Approved)
	assert.Equal(t, "What are the basics of X?", critique.SearchSuggestion)
}

func TestCritiqueFailureFallsBackToApproved(t *testing.T) {
	agents := New(&fakeProvider{err: errors.New("timeout")})

	critique := agents.CritiqueSlide(context.Background(), testOutline().Slides[0], testOutline(), store.SlideCandidate{SessionCode: "S01", SlideNumber: 1}, "", nil)
	assert.True(t, critique.Approved)
	assert.Equal(t, "Unable to critique", critique.Feedback)
}

func TestJudgeSlidesParsesSelection(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"session_code": "S02", "slide_number": 3, "reason": "Least problematic"}`}}
	agents := New(provider)

	history := []AttemptRecord{
		{Selected: Selection{SessionCode: "S01", SlideNumber: 1}, Critique: Critique{Feedback: "off"}},
		{Selected: Selection{SessionCode: "S02", SlideNumber: 3}, Critique: Critique{Feedback: "close"}},
	}
	selection, err := agents.JudgeSlides(context.Background(), testOutline().Slides[0], history)
	require.NoError(t, err)
	assert.Equal(t, "S02", selection.SessionCode)
	assert.Equal(t, 3, selection.SlideNumber)
}

func TestReviseDeckDefaultsMissingPositionsToApproved(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"feedback": "Mostly solid", "decisions": [
  {"position": 2, "status": "to-be-replaced", "reason": "Duplicates slide 1", "search_suggestion": "What does the runtime look like?"}
]}`}}
	agents := New(provider)

	assembled := []store.ResolvedSlide{
		{Position: 1, SessionCode: "S01", SlideNumber: 2},
		{Position: 2, SessionCode: "S01", SlideNumber: 3},
	}
	revision, err := agents.ReviseDeck(context.Background(), testOutline(), assembled)
	require.NoError(t, err)
	require.Len(t, revision.Decisions, 2)
	assert.Equal(t, store.ReviewApproved, revision.Decisions[0].Status)
	assert.Equal(t, store.ReviewToBeReplaced, revision.Decisions[1].Status)
	assert.Equal(t, "Mostly solid", revision.Feedback)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"wrapped in prose", "Sure! Here:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"no object", "no json here", ""},
		{"broken braces", "}{", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.response); got != tt.expected {
				t.Errorf("extractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}
