package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/pkg/store"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
	}{
		{"session", Session{Type: TypeSession, SessionID: "abc-123"}},
		{"slide_selection_start", SlideSelectionStart{Type: TypeSlideSelectionStart, Position: 2, Topic: "Market Overview", Total: 5}},
		{"slide_offered", SlideOffered{Type: TypeSlideOffered, Position: 1, Attempt: 2, SessionCode: "S01", SlideNumber: 7, Reason: "Covers the requested KPI summary"}},
		{"slide_critiqued_rejected", SlideCritiqued{Type: TypeSlideCritiqued, Position: 1, Attempt: 1, SessionCode: "S01", SlideNumber: 7, Approved: false, Feedback: "Too text heavy", SearchSuggestion: "revenue growth chart"}},
		{"judge_invoked", JudgeInvoked{Type: TypeJudgeInvoked, Position: 3, CandidatesCount: 3, SelectedCode: "S02", SelectedNumber: 4, Reason: "Best of the attempted slides"}},
		{"slide_not_found", SlideNotFound{Type: TypeSlideNotFound, Position: 4, Topic: "Quantum roadmap"}},
		{"error", Error{Type: TypeError, Message: "reasoning provider unavailable"}},
		{"debug_search", DebugSearch{Type: TypeDebugSearch, Position: 1, Query: "pricing strategy", ResultCount: 8, Round: 2, DurationMs: 41}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := Encode(tc.ev)
			require.NoError(t, err)

			got, err := Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, tc.ev, got)
		})
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"made_up_event"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestIsDebug(t *testing.T) {
	assert.True(t, IsDebug(DebugPhase{Type: TypeDebugPhase, Phase: "outline"}))
	assert.False(t, IsDebug(Complete{Type: TypeComplete}))
}

func TestPositionOpenedProjection(t *testing.T) {
	rec := PositionOpened{Position: 2, Topic: "Roadmap", Total: 4, Graph: "search -> offer -> critique"}

	compactOnly := rec.Project(false)
	require.Len(t, compactOnly, 1)
	assert.Equal(t, TypeSlideSelectionStart, compactOnly[0].EventType())

	both := rec.Project(true)
	require.Len(t, both, 2)
	assert.Equal(t, TypeDebugWorkflowStart, both[0].EventType())
	assert.Equal(t, TypeSlideSelectionStart, both[1].EventType())

	start := both[1].(SlideSelectionStart)
	debugStart := both[0].(DebugWorkflowStart)
	assert.Equal(t, start.Position, debugStart.Position)
	assert.Equal(t, start.Topic, debugStart.Topic)
}

func TestPositionClosedProjection(t *testing.T) {
	resolved := SlideSelected{Type: TypeSlideSelected, Position: 1, Slide: store.ResolvedSlide{Position: 1, SessionCode: "S01", SlideNumber: 3}}

	okRec := PositionClosed{Position: 1, Topic: "Intro", Attempts: 2, Resolved: &resolved}
	evs := okRec.Project(true)
	require.Len(t, evs, 2)
	assert.Equal(t, TypeSlideSelected, evs[0].EventType())
	assert.True(t, evs[1].(DebugWorkflowComplete).Success)

	missRec := PositionClosed{Position: 2, Topic: "Q3 metrics", Attempts: 3}
	evs = missRec.Project(false)
	require.Len(t, evs, 1)
	assert.Equal(t, TypeSlideNotFound, evs[0].EventType())
}

func TestDebugOnlyRecordsAreSilentWithoutDebug(t *testing.T) {
	assert.Empty(t, PhaseChanged{Phase: "compile"}.Project(false))
	assert.Empty(t, SearchPerformed{Query: "growth"}.Project(false))
}
