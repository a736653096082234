// Package agent wraps the reasoning model behind the deck workflow's four
// roles: outline, offer, critique and judge, plus the whole-deck reviser.
// Each role pairs a fixed instruction set with a task-specific prompt and
// parses the model's JSON answer into domain types.
package agent

import (
	"context"
	"fmt"
	"time"

	"deck-builder-be/internal/constant"
	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/llm"
	"deck-builder-be/pkg/store"
)

const promptPreviewLength = 500

// Selection is the offer or judge agent's pick.
type Selection struct {
	SessionCode string `json:"session_code"`
	SlideNumber int    `json:"slide_number"`
	Reason      string `json:"reason"`
}

// Critique is the critique agent's verdict on an offered slide.
type Critique struct {
	Approved         bool     `json:"approved"`
	Feedback         string   `json:"feedback"`
	Issues           []string `json:"issues"`
	SearchSuggestion string   `json:"search_suggestion"`
}

// AttemptRecord captures one offer/critique round for the judge's benefit.
type AttemptRecord struct {
	Attempt     int
	SearchQuery string
	Selected    Selection
	Title       string
	Critique    Critique
}

// Revision is the reviser agent's per-slide assessment of a complete deck.
type Revision struct {
	Feedback  string
	Decisions []store.SlideReview
}

// Agents runs the reasoning roles against a single provider. Trace, when
// set, receives a canonical record for every model call. Timeout, when
// positive, bounds each individual model call.
type Agents struct {
	Provider llm.LLMProvider
	Trace    func(rec events.Record)
	Timeout  time.Duration
}

func New(provider llm.LLMProvider) *Agents {
	return &Agents{Provider: provider}
}

func (a *Agents) emit(rec events.Record) {
	if a.Trace != nil {
		a.Trace(rec)
	}
}

// run executes one reasoning call with the role's instructions as the system
// message, surrounding it with debug records.
func (a *Agents) run(ctx context.Context, agentName, task string, position int, instructions, prompt string) (string, error) {
	a.emit(events.Plain{Event: events.DebugLLMStart{
		Type:           events.TypeDebugLLMStart,
		Agent:          agentName,
		Task:           task,
		Position:       position,
		PromptPreview:  preview(prompt, promptPreviewLength),
		ResponseFormat: "json",
	}})

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := a.Provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: instructions},
		{Role: "user", Content: prompt},
	}, llm.WithTemperature(0.2))
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		a.emit(events.Plain{Event: events.DebugLLMComplete{
			Type:       events.TypeDebugLLMComplete,
			Agent:      agentName,
			Status:     "error",
			Position:   position,
			DurationMs: elapsed,
			Error:      err.Error(),
		}})
		return "", err
	}

	a.emit(events.Plain{Event: events.DebugLLMComplete{
		Type:            events.TypeDebugLLMComplete,
		Agent:           agentName,
		Status:          "success",
		Position:        position,
		DurationMs:      elapsed,
		ResponsePreview: preview(response, promptPreviewLength),
	}})
	return response, nil
}

// GenerateOutline asks the outline agent for a structured presentation plan
// over the candidate slides found by the initial search. A provider failure
// or an unparseable answer is fatal for the outline stage.
func (a *Agents) GenerateOutline(ctx context.Context, query string, available []store.SlideCandidate) (*store.Outline, error) {
	prompt := fmt.Sprintf(`Create a presentation outline for: %s

AVAILABLE SLIDES (from search):
%s

Create a structured outline with 5-9 slides.`, query, formatSlidesSummary(available))

	response, err := a.run(ctx, constant.DeckAgentOutline, "Creating presentation outline", 0, constant.OutlineAgentInstructions, prompt)
	if err != nil {
		return nil, fmt.Errorf("outline agent: %w: %s", deck.ErrReasoningUnavailable, err)
	}

	outline, err := parseOutline(response)
	if err != nil {
		return nil, fmt.Errorf("outline agent: %w: %s", deck.ErrReasoningUnavailable, err)
	}
	return outline, nil
}

// OfferSlide asks the offer agent to pick one candidate for the position.
// The caller falls back to the top candidate when this fails.
func (a *Agents) OfferSlide(ctx context.Context, item store.OutlineSlide, outline *store.Outline, candidates []store.SlideCandidate, history []AttemptRecord) (*Selection, error) {
	prompt := buildOfferPrompt(item, outline, candidates, history)

	response, err := a.run(ctx, constant.DeckAgentOffer, "Selecting best candidate slide", item.Position, constant.OfferAgentInstructions, prompt)
	if err != nil {
		return nil, err
	}

	selection, err := parseSelection(response)
	if err != nil {
		return nil, err
	}
	return selection, nil
}

// CritiqueSlide asks the critique agent to accept or reject the offered
// slide. A failed critique never blocks the workflow: the slide passes with
// a note that it could not be critiqued.
func (a *Agents) CritiqueSlide(ctx context.Context, item store.OutlineSlide, outline *store.Outline, slide store.SlideCandidate, reason string, previousSearches []string) Critique {
	prompt := buildCritiquePrompt(item, outline, slide, reason, previousSearches)

	fallback := Critique{Approved: true, Feedback: "Unable to critique"}

	response, err := a.run(ctx, constant.DeckAgentCritique, "Evaluating offered slide", item.Position, constant.CritiqueAgentInstructions, prompt)
	if err != nil {
		return fallback
	}

	critique, err := parseCritique(response)
	if err != nil {
		return fallback
	}
	return critique
}

// JudgeSlides asks the judge to pick the least problematic slide among all
// attempted candidates. The caller falls back to the last attempt when this
// fails.
func (a *Agents) JudgeSlides(ctx context.Context, item store.OutlineSlide, history []AttemptRecord) (*Selection, error) {
	prompt := buildJudgePrompt(item, history)

	response, err := a.run(ctx, constant.DeckAgentJudge, "Judging attempted slides", item.Position, constant.JudgeAgentInstructions, prompt)
	if err != nil {
		return nil, err
	}

	selection, err := parseSelection(response)
	if err != nil {
		return nil, err
	}
	return selection, nil
}

// ReviseDeck asks the reviser to assess the assembled deck slide by slide.
func (a *Agents) ReviseDeck(ctx context.Context, outline *store.Outline, assembled []store.ResolvedSlide) (*Revision, error) {
	prompt := buildRevisionPrompt(outline, assembled)

	response, err := a.run(ctx, constant.DeckAgentReviser, "Reviewing assembled deck", 0, constant.ReviserAgentInstructions, prompt)
	if err != nil {
		return nil, err
	}

	revision, err := parseRevision(response, assembled)
	if err != nil {
		return nil, err
	}
	return revision, nil
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
