package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deck-builder-be/pkg/store"
)

func TestSourceDecksGroupsAndEnriches(t *testing.T) {
	deck := []store.ResolvedSlide{
		{Position: 1, SessionCode: "S01", SlideNumber: 3},
		{Position: 2, SessionCode: "S02", SlideNumber: 1},
		{Position: 3, SessionCode: "S01", SlideNumber: 8},
	}
	all := []store.SlideCandidate{
		{SessionCode: "S01", SlideNumber: 3, SessionTitle: "Platform Deep Dive", PptUrl: "https://files/s01.pptx"},
		{SessionCode: "S02", SlideNumber: 1, SessionTitle: "Quarterly Review", PptUrl: "https://files/s02.pptx"},
		{SessionCode: "S03", SlideNumber: 9, SessionTitle: "Unused"},
	}

	decks := SourceDecks(deck, all)
	require.Len(t, decks, 2)

	assert.Equal(t, "S01", decks[0].SessionCode)
	assert.Equal(t, "Platform Deep Dive", decks[0].Title)
	assert.Equal(t, "https://files/s01.pptx", decks[0].PptUrl)
	assert.Equal(t, []int{3, 8}, decks[0].SlidesUsed)

	assert.Equal(t, "S02", decks[1].SessionCode)
	assert.Equal(t, []int{1}, decks[1].SlidesUsed)
}

func TestSourceDecksFallsBackToCodeAsTitle(t *testing.T) {
	deck := []store.ResolvedSlide{{Position: 1, SessionCode: "S09", SlideNumber: 2}}

	decks := SourceDecks(deck, nil)
	require.Len(t, decks, 1)
	assert.Equal(t, "S09", decks[0].Title)
}

func TestSortDeck(t *testing.T) {
	deck := []store.ResolvedSlide{
		{Position: 3, SessionCode: "S01"},
		{Position: 1, SessionCode: "S02"},
		{Position: 2, SessionCode: "S03"},
	}

	sorted := SortDeck(deck)
	assert.Equal(t, 1, sorted[0].Position)
	assert.Equal(t, 2, sorted[1].Position)
	assert.Equal(t, 3, sorted[2].Position)
	// Input untouched
	assert.Equal(t, 3, deck[0].Position)
}
