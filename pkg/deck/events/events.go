// Package events defines the workflow event protocol: the tagged union the
// orchestrator emits, its wire framing, and the decoder a consumer uses to
// reconstruct typed events from raw frames.
//
// Ordinary events are what a client renders by default; every event whose
// type carries the "debug_" prefix is richer opt-in detail on the same
// timeline. Both derive from the same stage transitions, so their relative
// order on the stream is authoritative.
package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"deck-builder-be/pkg/store"
)

// Event is one element of the workflow event union.
type Event interface {
	EventType() string
}

// Event type discriminants.
const (
	TypeSession              = "session"
	TypeOutlinePending       = "outline_pending"
	TypeAwaitingConfirmation = "awaiting_confirmation"
	TypeOutlineConfirmed     = "outline_confirmed"
	TypeSlideSelectionStart  = "slide_selection_start"
	TypeSlideOffered         = "slide_offered"
	TypeSlideCritiqued       = "slide_critiqued"
	TypeJudgeInvoked         = "judge_invoked"
	TypeSlideSelected        = "slide_selected"
	TypeSlideNotFound        = "slide_not_found"
	TypeRevisionProgress     = "revision_progress"
	TypeIntermediateDeck     = "intermediate_deck"
	TypeDeckCompiled         = "deck_compiled"
	TypeDownloadInfo         = "download_info"
	TypeComplete             = "complete"
	TypeError                = "error"

	TypeDebugPhase            = "debug_phase"
	TypeDebugSearch           = "debug_search"
	TypeDebugLLMStart         = "debug_llm_start"
	TypeDebugLLMComplete      = "debug_llm_complete"
	TypeDebugWorkflowStart    = "debug_slide_workflow_start"
	TypeDebugWorkflowComplete = "debug_slide_workflow_complete"
)

// Session carries the session identifier, always the first event on a stream.
type Session struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// OutlinePending delivers the generated outline for the client to edit and
// confirm. AllSlides is the candidate universe the client hands back on
// confirmation.
type OutlinePending struct {
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Narrative string                 `json:"narrative"`
	Slides    []store.OutlineSlide   `json:"slides"`
	AllSlides []store.SlideCandidate `json:"all_slides,omitempty"`
}

// AwaitingConfirmation signals that the workflow halted until the client
// confirms the outline.
type AwaitingConfirmation struct {
	Type string `json:"type"`
}

// OutlineConfirmed acknowledges the (possibly edited) outline the build will
// use.
type OutlineConfirmed struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	SlideCount int    `json:"slide_count"`
}

// SlideSelectionStart opens the selection sub-workflow for one position.
type SlideSelectionStart struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Topic    string `json:"topic"`
	Total    int    `json:"total"`
}

// SlideOffered reports the offer step's pick for the current attempt.
type SlideOffered struct {
	Type        string `json:"type"`
	Position    int    `json:"position"`
	Attempt     int    `json:"attempt"`
	SessionCode string `json:"session_code"`
	SlideNumber int    `json:"slide_number"`
	Title       string `json:"title,omitempty"`
	Reason      string `json:"reason"`
}

// SlideCritiqued reports the critique verdict for the offered slide.
type SlideCritiqued struct {
	Type             string `json:"type"`
	Position         int    `json:"position"`
	Attempt          int    `json:"attempt"`
	SessionCode      string `json:"session_code"`
	SlideNumber      int    `json:"slide_number"`
	SlideTitle       string `json:"slide_title,omitempty"`
	ThumbnailUrl     string `json:"thumbnail_url,omitempty"`
	Approved         bool   `json:"approved"`
	Feedback         string `json:"feedback"`
	SearchSuggestion string `json:"search_suggestion,omitempty"`
}

// JudgeInvoked reports the judge escalation after attempts are exhausted.
type JudgeInvoked struct {
	Type            string `json:"type"`
	Position        int    `json:"position"`
	CandidatesCount int    `json:"candidates_count"`
	SelectedCode    string `json:"selected_code,omitempty"`
	SelectedNumber  int    `json:"selected_number,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// SlideSelected resolves a position to a concrete slide.
type SlideSelected struct {
	Type     string              `json:"type"`
	Position int                 `json:"position"`
	Slide    store.ResolvedSlide `json:"slide"`
}

// SlideNotFound marks a position that could not be resolved. This is a valid
// terminal outcome for the position, not an error.
type SlideNotFound struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Topic    string `json:"topic"`
}

// RevisionProgress reports one whole-deck revision pass.
type RevisionProgress struct {
	Type           string              `json:"type"`
	RevisionRound  int                 `json:"revision_round"`
	Feedback       string              `json:"feedback,omitempty"`
	SlideDecisions []store.SlideReview `json:"slide_decisions"`
}

// IntermediateDeck snapshots the assembled deck after a position resolves or
// a revision pass completes.
type IntermediateDeck struct {
	Type          string                `json:"type"`
	Deck          []store.ResolvedSlide `json:"deck"`
	Narrative     string                `json:"narrative"`
	RevisionRound int                   `json:"revision_round"`
	IsFinal       bool                  `json:"is_final"`
}

// DeckCompiled carries the final ordered slide list.
type DeckCompiled struct {
	Type      string                `json:"type"`
	Slides    []store.ResolvedSlide `json:"slides"`
	Narrative string                `json:"narrative,omitempty"`
}

// DownloadInfo carries the source-deck manifest.
type DownloadInfo struct {
	Type  string             `json:"type"`
	Decks []store.SourceDeck `json:"decks"`
}

// Complete terminates a successful stream.
type Complete struct {
	Type string `json:"type"`
}

// Error terminates a failed stream. It is the only way failures cross the
// stream boundary.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DebugPhase marks a top-level workflow phase change.
type DebugPhase struct {
	Type        string `json:"type"`
	Phase       string `json:"phase"`
	Description string `json:"description"`
}

// DebugSearch reports one retrieval call with its result count.
type DebugSearch struct {
	Type        string `json:"type"`
	Position    int    `json:"position,omitempty"`
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	Round       int    `json:"round,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// DebugLLMStart reports a reasoning call about to run, with the full prompt.
type DebugLLMStart struct {
	Type           string `json:"type"`
	Agent          string `json:"agent"`
	Task           string `json:"task"`
	Position       int    `json:"position,omitempty"`
	PromptPreview  string `json:"prompt_preview"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// DebugLLMComplete reports the outcome of a reasoning call.
type DebugLLMComplete struct {
	Type            string `json:"type"`
	Agent           string `json:"agent"`
	Status          string `json:"status"` // "success" | "error"
	Position        int    `json:"position,omitempty"`
	DurationMs      int64  `json:"duration_ms"`
	ResponsePreview string `json:"response_preview,omitempty"`
	Error           string `json:"error,omitempty"`
}

// DebugWorkflowStart opens the verbose view of one selection sub-workflow.
type DebugWorkflowStart struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Topic    string `json:"topic"`
	Total    int    `json:"total"`
	Graph    string `json:"workflow_graph"`
}

// DebugWorkflowComplete closes the verbose view of one selection
// sub-workflow.
type DebugWorkflowComplete struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
}

func (e Session) EventType() string              { return e.Type }
func (e OutlinePending) EventType() string       { return e.Type }
func (e AwaitingConfirmation) EventType() string { return e.Type }
func (e OutlineConfirmed) EventType() string     { return e.Type }
func (e SlideSelectionStart) EventType() string  { return e.Type }
func (e SlideOffered) EventType() string         { return e.Type }
func (e SlideCritiqued) EventType() string       { return e.Type }
func (e JudgeInvoked) EventType() string         { return e.Type }
func (e SlideSelected) EventType() string        { return e.Type }
func (e SlideNotFound) EventType() string        { return e.Type }
func (e RevisionProgress) EventType() string     { return e.Type }
func (e IntermediateDeck) EventType() string     { return e.Type }
func (e DeckCompiled) EventType() string         { return e.Type }
func (e DownloadInfo) EventType() string         { return e.Type }
func (e Complete) EventType() string             { return e.Type }
func (e Error) EventType() string                { return e.Type }
func (e DebugPhase) EventType() string           { return e.Type }
func (e DebugSearch) EventType() string          { return e.Type }
func (e DebugLLMStart) EventType() string        { return e.Type }
func (e DebugLLMComplete) EventType() string     { return e.Type }
func (e DebugWorkflowStart) EventType() string   { return e.Type }
func (e DebugWorkflowComplete) EventType() string { return e.Type }

// IsDebug reports whether ev belongs to the verbose taxonomy.
func IsDebug(ev Event) bool {
	return strings.HasPrefix(ev.EventType(), "debug_")
}

// Encode serializes an event into one wire frame.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", ev.EventType(), err)
	}
	return data, nil
}

// Decode reconstructs a typed event from a raw frame. A frame with an
// unknown or missing type is an error; the caller logs and skips it instead
// of terminating the stream.
func Decode(frame []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var (
		ev  Event
		err error
	)
	switch head.Type {
	case TypeSession:
		ev, err = unmarshalAs[Session](frame)
	case TypeOutlinePending:
		ev, err = unmarshalAs[OutlinePending](frame)
	case TypeAwaitingConfirmation:
		ev, err = unmarshalAs[AwaitingConfirmation](frame)
	case TypeOutlineConfirmed:
		ev, err = unmarshalAs[OutlineConfirmed](frame)
	case TypeSlideSelectionStart:
		ev, err = unmarshalAs[SlideSelectionStart](frame)
	case TypeSlideOffered:
		ev, err = unmarshalAs[SlideOffered](frame)
	case TypeSlideCritiqued:
		ev, err = unmarshalAs[SlideCritiqued](frame)
	case TypeJudgeInvoked:
		ev, err = unmarshalAs[JudgeInvoked](frame)
	case TypeSlideSelected:
		ev, err = unmarshalAs[SlideSelected](frame)
	case TypeSlideNotFound:
		ev, err = unmarshalAs[SlideNotFound](frame)
	case TypeRevisionProgress:
		ev, err = unmarshalAs[RevisionProgress](frame)
	case TypeIntermediateDeck:
		ev, err = unmarshalAs[IntermediateDeck](frame)
	case TypeDeckCompiled:
		ev, err = unmarshalAs[DeckCompiled](frame)
	case TypeDownloadInfo:
		ev, err = unmarshalAs[DownloadInfo](frame)
	case TypeComplete:
		ev, err = unmarshalAs[Complete](frame)
	case TypeError:
		ev, err = unmarshalAs[Error](frame)
	case TypeDebugPhase:
		ev, err = unmarshalAs[DebugPhase](frame)
	case TypeDebugSearch:
		ev, err = unmarshalAs[DebugSearch](frame)
	case TypeDebugLLMStart:
		ev, err = unmarshalAs[DebugLLMStart](frame)
	case TypeDebugLLMComplete:
		ev, err = unmarshalAs[DebugLLMComplete](frame)
	case TypeDebugWorkflowStart:
		ev, err = unmarshalAs[DebugWorkflowStart](frame)
	case TypeDebugWorkflowComplete:
		ev, err = unmarshalAs[DebugWorkflowComplete](frame)
	default:
		return nil, fmt.Errorf("decode frame: unknown event type %q", head.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func unmarshalAs[T Event](frame []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(frame, &ev); err != nil {
		return nil, fmt.Errorf("decode %T: %w", ev, err)
	}
	return ev, nil
}
