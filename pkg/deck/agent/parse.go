package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"deck-builder-be/pkg/store"
)

// extractJSON pulls the outermost JSON object out of a model response that
// may wrap it in prose or markdown fences.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}

func parseOutline(response string) (*store.Outline, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in outline response")
	}

	var payload struct {
		Title     string `json:"title"`
		Narrative string `json:"narrative"`
		Slides    []struct {
			Position    int      `json:"position"`
			Topic       string   `json:"topic"`
			SearchHints []string `json:"search_hints"`
			Purpose     string   `json:"purpose"`
		} `json:"slides"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal outline: %w", err)
	}
	if len(payload.Slides) == 0 {
		return nil, fmt.Errorf("outline has no slides")
	}

	outline := &store.Outline{
		Title:     payload.Title,
		Narrative: payload.Narrative,
		Slides:    make([]store.OutlineSlide, len(payload.Slides)),
	}
	if outline.Title == "" {
		outline.Title = "Presentation"
	}
	for i, s := range payload.Slides {
		outline.Slides[i] = store.OutlineSlide{
			Position:    s.Position,
			Topic:       s.Topic,
			SearchHints: s.SearchHints,
			Purpose:     s.Purpose,
		}
	}
	// Positions from the model can be missing or duplicated
	outline.Renumber()
	return outline, nil
}

func parseSelection(response string) (*Selection, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in selection response")
	}

	var selection Selection
	if err := json.Unmarshal([]byte(raw), &selection); err != nil {
		return nil, fmt.Errorf("unmarshal selection: %w", err)
	}
	if selection.SessionCode == "" || selection.SlideNumber <= 0 {
		return nil, fmt.Errorf("selection missing slide identity")
	}
	return &selection, nil
}

func parseCritique(response string) (Critique, error) {
	raw := extractJSON(response)
	if raw == "" {
		return Critique{}, fmt.Errorf("no JSON object in critique response")
	}

	var critique Critique
	if err := json.Unmarshal([]byte(raw), &critique); err != nil {
		return Critique{}, fmt.Errorf("unmarshal critique: %w", err)
	}
	if critique.Feedback == "" {
		if critique.Approved {
			critique.Feedback = "Slide fits the requirement"
		} else {
			critique.Feedback = "Slide rejected"
		}
	}
	return critique, nil
}

// parseRevision normalizes the reviser's answer against the assembled deck:
// decisions for unknown positions are dropped and positions the model
// skipped default to approved.
func parseRevision(response string, assembled []store.ResolvedSlide) (*Revision, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in revision response")
	}

	var payload struct {
		Feedback  string `json:"feedback"`
		Decisions []struct {
			Position         int    `json:"position"`
			Status           string `json:"status"`
			Reason           string `json:"reason"`
			SearchSuggestion string `json:"search_suggestion"`
		} `json:"decisions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal revision: %w", err)
	}

	byPosition := make(map[int]store.SlideReview, len(payload.Decisions))
	for _, d := range payload.Decisions {
		status := d.Status
		if status != store.ReviewToBeReplaced {
			status = store.ReviewApproved
		}
		byPosition[d.Position] = store.SlideReview{
			Position:         d.Position,
			Status:           status,
			Reason:           d.Reason,
			SearchSuggestion: d.SearchSuggestion,
		}
	}

	revision := &Revision{
		Feedback:  payload.Feedback,
		Decisions: make([]store.SlideReview, 0, len(assembled)),
	}
	for _, s := range assembled {
		if d, ok := byPosition[s.Position]; ok {
			revision.Decisions = append(revision.Decisions, d)
			continue
		}
		revision.Decisions = append(revision.Decisions, store.SlideReview{
			Position: s.Position,
			Status:   store.ReviewApproved,
		})
	}
	return revision, nil
}
