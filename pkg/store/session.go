package store

import (
	"fmt"
	"time"
)

// SlideCandidate represents one ranked result from the slide search index.
// Candidates are transient: they live for the attempt that produced them
// (or for the whole build as the confirmed candidate universe).
type SlideCandidate struct {
	SlideId      string  `json:"slide_id"`
	SessionCode  string  `json:"session_code"`
	SlideNumber  int     `json:"slide_number"`
	Title        string  `json:"title"`
	SessionTitle string  `json:"session_title,omitempty"`
	Content      string  `json:"content,omitempty"`
	Snippet      string  `json:"snippet,omitempty"`
	PptUrl       string  `json:"ppt_url,omitempty"`
	Score        float64 `json:"score"`
}

// Key returns the unique slide identifier: SESSION_NUMBER.
func (c SlideCandidate) Key() string {
	return SlideKey(c.SessionCode, c.SlideNumber)
}

// OutlineSlide is one planned position in the outline, not yet bound to a
// concrete slide. Positions are 1-based, dense and unique within an Outline.
type OutlineSlide struct {
	Position    int      `json:"position"`
	Topic       string   `json:"topic"`
	Purpose     string   `json:"purpose"`
	SearchHints []string `json:"search_hints,omitempty"`
}

// Outline is the title/narrative/slide-spec skeleton of a requested deck.
// Mutable until confirmed; immutable for the rest of the build afterwards.
type Outline struct {
	Title     string         `json:"title"`
	Narrative string         `json:"narrative"`
	Slides    []OutlineSlide `json:"slides"`
}

// Renumber restores the dense 1-based position invariant after the client
// removed or reordered outline slides.
func (o *Outline) Renumber() {
	for i := range o.Slides {
		o.Slides[i].Position = i + 1
	}
}

// ResolvedSlide binds an outline position to a concrete source slide.
type ResolvedSlide struct {
	Position    int    `json:"position"`
	SessionCode string `json:"session_code"`
	SlideNumber int    `json:"slide_number"`
	Title       string `json:"title,omitempty"`
	Reason      string `json:"reason"`
	Attempts    int    `json:"attempts"`
	ViaJudge    bool   `json:"via_judge,omitempty"`
}

// Key returns the unique slide identifier: SESSION_NUMBER.
func (r ResolvedSlide) Key() string {
	return SlideKey(r.SessionCode, r.SlideNumber)
}

// SlideReview is one per-position decision from a revision pass.
type SlideReview struct {
	Position         int    `json:"position"`
	Status           string `json:"status"` // "approved" | "to-be-replaced"
	Reason           string `json:"reason,omitempty"`
	SearchSuggestion string `json:"search_suggestion,omitempty"`
}

// SourceDeck is one entry of the download manifest: a distinct source deck
// and the slide numbers taken from it.
type SourceDeck struct {
	SessionCode string `json:"session_code"`
	Title       string `json:"title"`
	PptUrl      string `json:"ppt_url"`
	SlidesUsed  []int  `json:"slides_used"`
}

// DeckSession is the server-held mutable state for one deck-building
// interaction. It is owned exclusively by the orchestrator while a stage is
// active.
type DeckSession struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	// The request that started the build.
	Request string `json:"request,omitempty"`

	// Outline produced by the outline stage, replaced by the client's edited
	// version on confirmation (last write wins until confirmed).
	Outline *Outline `json:"outline,omitempty"`

	// Candidate universe from the initial search, handed back on confirm.
	AllSlides []SlideCandidate `json:"all_slides,omitempty"`

	// Resolved deck, in outline-position order. Append-only while building;
	// revision may replace an entry in place, never duplicate it.
	Deck []ResolvedSlide `json:"deck,omitempty"`

	// Reviews from the latest revision pass, keyed by position. Replaced
	// wholesale on each pass.
	Reviews map[int]SlideReview `json:"reviews,omitempty"`

	// Slides already used anywhere in the deck, excluded from later offers.
	SelectedKeys map[string]bool `json:"-"`

	RevisionRound int       `json:"revision_round"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastTouched   time.Time `json:"last_touched"`
}

// Session lifecycle states.
const (
	StatusIdle           = "idle"
	StatusOutlineRunning = "outline_in_progress"
	StatusOutlinePending = "outline_pending_confirmation"
	StatusSlideSelection = "slide_selection_in_progress"
	StatusRevising       = "revision_in_progress"
	StatusCompiling      = "compiling"
	StatusComplete       = "complete"
	StatusFailed         = "failed"
)

// Review statuses.
const (
	ReviewApproved     = "approved"
	ReviewToBeReplaced = "to-be-replaced"
)

// Terminal reports whether the session can no longer advance.
func (s *DeckSession) Terminal() bool {
	return s.Status == StatusComplete || s.Status == StatusFailed
}

// ResolvedAt returns the resolved slide for a position, if any.
func (s *DeckSession) ResolvedAt(position int) (ResolvedSlide, bool) {
	for _, r := range s.Deck {
		if r.Position == position {
			return r, true
		}
	}
	return ResolvedSlide{}, false
}

// ReplaceResolved swaps the entry for slide.Position, or appends when the
// position was previously unresolved. Deck order stays ascending by position.
func (s *DeckSession) ReplaceResolved(slide ResolvedSlide) {
	if s.SelectedKeys == nil {
		s.SelectedKeys = make(map[string]bool)
	}
	for i, r := range s.Deck {
		if r.Position == slide.Position {
			delete(s.SelectedKeys, r.Key())
			s.Deck[i] = slide
			s.SelectedKeys[slide.Key()] = true
			return
		}
	}
	s.Deck = append(s.Deck, slide)
	s.SelectedKeys[slide.Key()] = true
}

// Clone returns a deep copy sharing no mutable state with the receiver.
// The session store snapshots through it so readers never observe a
// session mid-mutation.
func (s *DeckSession) Clone() *DeckSession {
	c := *s
	if s.Outline != nil {
		outline := *s.Outline
		outline.Slides = make([]OutlineSlide, len(s.Outline.Slides))
		for i, slide := range s.Outline.Slides {
			outline.Slides[i] = slide
			outline.Slides[i].SearchHints = append([]string(nil), slide.SearchHints...)
		}
		c.Outline = &outline
	}
	c.AllSlides = append([]SlideCandidate(nil), s.AllSlides...)
	c.Deck = append([]ResolvedSlide(nil), s.Deck...)
	if s.Reviews != nil {
		c.Reviews = make(map[int]SlideReview, len(s.Reviews))
		for k, v := range s.Reviews {
			c.Reviews[k] = v
		}
	}
	if s.SelectedKeys != nil {
		c.SelectedKeys = make(map[string]bool, len(s.SelectedKeys))
		for k, v := range s.SelectedKeys {
			c.SelectedKeys[k] = v
		}
	}
	return &c
}

// SlideKey builds the unique slide identifier: SESSION_NUMBER.
func SlideKey(sessionCode string, slideNumber int) string {
	return fmt.Sprintf("%s_%d", sessionCode, slideNumber)
}

// ThumbnailPath builds the thumbnail URL path for a slide.
func ThumbnailPath(sessionCode string, slideNumber int) string {
	return fmt.Sprintf("/thumbnails/%s_%d.png", sessionCode, slideNumber)
}
