package events

// A canonical record captures one workflow transition exactly once. The
// compact event a plain client sees and the verbose debug_* duplicate are
// both pure projections of the same record, which keeps the two views from
// drifting apart.

// Record is a workflow transition that projects onto the wire union.
type Record interface {
	// Project returns the wire events for this transition in emit order:
	// the optional verbose form first, then the compact form. Either may
	// be absent.
	Project(debug bool) []Event
}

// PositionOpened records entry into one position's selection sub-workflow.
type PositionOpened struct {
	Position int
	Topic    string
	Total    int
	Graph    string
}

func (r PositionOpened) Project(debug bool) []Event {
	evs := make([]Event, 0, 2)
	if debug {
		evs = append(evs, DebugWorkflowStart{
			Type:     TypeDebugWorkflowStart,
			Position: r.Position,
			Topic:    r.Topic,
			Total:    r.Total,
			Graph:    r.Graph,
		})
	}
	return append(evs, SlideSelectionStart{
		Type:     TypeSlideSelectionStart,
		Position: r.Position,
		Topic:    r.Topic,
		Total:    r.Total,
	})
}

// PositionClosed records the terminal outcome of one position: either a
// resolved slide or a not-found marker.
type PositionClosed struct {
	Position int
	Topic    string
	Attempts int
	Resolved *SlideSelected // nil when the position resolved to nothing
}

func (r PositionClosed) Project(debug bool) []Event {
	evs := make([]Event, 0, 2)
	if r.Resolved != nil {
		evs = append(evs, *r.Resolved)
	} else {
		evs = append(evs, SlideNotFound{Type: TypeSlideNotFound, Position: r.Position, Topic: r.Topic})
	}
	if debug {
		evs = append(evs, DebugWorkflowComplete{
			Type:     TypeDebugWorkflowComplete,
			Position: r.Position,
			Success:  r.Resolved != nil,
			Attempts: r.Attempts,
		})
	}
	return evs
}

// PhaseChanged records a top-level workflow phase transition. It has no
// compact form.
type PhaseChanged struct {
	Phase       string
	Description string
}

func (r PhaseChanged) Project(debug bool) []Event {
	if !debug {
		return nil
	}
	return []Event{DebugPhase{Type: TypeDebugPhase, Phase: r.Phase, Description: r.Description}}
}

// SearchPerformed records one retrieval call. It has no compact form.
type SearchPerformed struct {
	Position    int
	Query       string
	ResultCount int
	Round       int
	DurationMs  int64
}

func (r SearchPerformed) Project(debug bool) []Event {
	if !debug {
		return nil
	}
	return []Event{DebugSearch{
		Type:        TypeDebugSearch,
		Position:    r.Position,
		Query:       r.Query,
		ResultCount: r.ResultCount,
		Round:       r.Round,
		DurationMs:  r.DurationMs,
	}}
}

// Plain wraps a compact event that has no verbose counterpart.
type Plain struct {
	Event Event
}

func (r Plain) Project(bool) []Event { return []Event{r.Event} }
