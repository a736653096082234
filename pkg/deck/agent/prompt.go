package agent

import (
	"fmt"
	"strings"

	"deck-builder-be/pkg/store"
)

const (
	maxSummarySlides       = 20
	summaryContentLength   = 150
	candidateContentLength = 300
	critiqueContentLength  = 500
)

func formatSlidesSummary(slides []store.SlideCandidate) string {
	var b strings.Builder
	for i, s := range slides {
		if i >= maxSummarySlides {
			break
		}
		fmt.Fprintf(&b, "- [%s #%d] %s: %s...\n", s.SessionCode, s.SlideNumber, s.Title, truncate(s.Content, summaryContentLength))
	}
	return b.String()
}

func formatCandidates(candidates []store.SlideCandidate) string {
	var b strings.Builder
	for i, s := range candidates {
		fmt.Fprintf(&b, "%d. [%s Slide %d] %s\n", i+1, s.SessionCode, s.SlideNumber, s.Title)
		if s.SessionTitle != "" {
			fmt.Fprintf(&b, "   Session: %s\n", s.SessionTitle)
		}
		fmt.Fprintf(&b, "   Content: %s...\n\n", truncate(s.Content, candidateContentLength))
	}
	return b.String()
}

func buildOfferPrompt(item store.OutlineSlide, outline *store.Outline, candidates []store.SlideCandidate, history []AttemptRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, `PRESENTATION: %s
Narrative: %s

SLIDE REQUIREMENT:
Position: %d of %d
Topic: %s
Purpose: %s
Search Hints: %s

CANDIDATES:
%s`, outline.Title, outline.Narrative,
		item.Position, len(outline.Slides), item.Topic, item.Purpose, strings.Join(item.SearchHints, ", "),
		formatCandidates(candidates))

	if len(history) > 0 {
		b.WriteString("\n\nPREVIOUS ATTEMPTS (avoid these issues):\n")
		for _, h := range history {
			fmt.Fprintf(&b, "- %s #%d: %s\n", h.Selected.SessionCode, h.Selected.SlideNumber, h.Critique.Feedback)
		}
	}

	b.WriteString("\n\nSelect the BEST matching slide.")
	return b.String()
}

func buildCritiquePrompt(item store.OutlineSlide, outline *store.Outline, slide store.SlideCandidate, reason string, previousSearches []string) string {
	var previous string
	if len(previousSearches) > 0 {
		previous = "\n\nPREVIOUS SEARCHES TRIED (do NOT suggest these again):\n- " + strings.Join(previousSearches, "\n- ")
	}

	return fmt.Sprintf(`PRESENTATION: %s

SLIDE REQUIREMENT:
Position: %d
Topic: %s
Purpose: %s

SELECTED SLIDE:
Session: %s Slide #%d
Title: %s
Content: %s

Selection Reason: %s%s

Does this slide match the topic? If rejecting, suggest a DIFFERENT search formulated as a full natural language question.`,
		outline.Title,
		item.Position, item.Topic, item.Purpose,
		slide.SessionCode, slide.SlideNumber, slide.Title, truncate(slide.Content, critiqueContentLength),
		reason, previous)
}

func buildJudgePrompt(item store.OutlineSlide, history []AttemptRecord) string {
	var candidates strings.Builder
	for i, h := range history {
		fmt.Fprintf(&candidates, "CANDIDATE %d: %s #%d - %s\n  Feedback: %s\n",
			i+1, h.Selected.SessionCode, h.Selected.SlideNumber, h.Title, h.Critique.Feedback)
	}

	return fmt.Sprintf(`Pick the BEST slide for:
Topic: %s
Purpose: %s

%s
Pick ONE slide (the least problematic option).`, item.Topic, item.Purpose, candidates.String())
}

func buildRevisionPrompt(outline *store.Outline, assembled []store.ResolvedSlide) string {
	var b strings.Builder
	fmt.Fprintf(&b, `PRESENTATION: %s
Narrative: %s

ASSEMBLED DECK:
`, outline.Title, outline.Narrative)

	for _, s := range assembled {
		topic := ""
		for _, o := range outline.Slides {
			if o.Position == s.Position {
				topic = o.Topic
				break
			}
		}
		fmt.Fprintf(&b, "Position %d (%s): %s #%d - %s\n  Selected because: %s\n",
			s.Position, topic, s.SessionCode, s.SlideNumber, s.Title, s.Reason)
	}

	b.WriteString("\nAssess EVERY slide and return a decision for each position.")
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
