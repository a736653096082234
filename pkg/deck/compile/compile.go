// Package compile assembles the final deck artifacts: the ordered slide
// list and the source-deck manifest that tells a client which original
// presentations to fetch.
package compile

import (
	"sort"

	"deck-builder-be/pkg/store"
)

// SourceDecks groups the resolved slides by their source presentation and
// enriches each group with the title and download URL taken from the
// candidate universe. Order follows the first appearance of each source in
// the deck.
func SourceDecks(deck []store.ResolvedSlide, allSlides []store.SlideCandidate) []store.SourceDeck {
	byCode := make(map[string]*store.SourceDeck)
	order := make([]string, 0)

	for _, slide := range deck {
		entry, ok := byCode[slide.SessionCode]
		if !ok {
			entry = &store.SourceDeck{SessionCode: slide.SessionCode}
			byCode[slide.SessionCode] = entry
			order = append(order, slide.SessionCode)
		}
		entry.SlidesUsed = append(entry.SlidesUsed, slide.SlideNumber)
	}

	for _, candidate := range allSlides {
		entry, ok := byCode[candidate.SessionCode]
		if !ok {
			continue
		}
		if entry.Title == "" {
			entry.Title = candidate.SessionTitle
		}
		if entry.PptUrl == "" {
			entry.PptUrl = candidate.PptUrl
		}
	}

	decks := make([]store.SourceDeck, 0, len(order))
	for _, code := range order {
		entry := byCode[code]
		if entry.Title == "" {
			entry.Title = code
		}
		decks = append(decks, *entry)
	}
	return decks
}

// SortDeck orders resolved slides by outline position.
func SortDeck(deck []store.ResolvedSlide) []store.ResolvedSlide {
	sorted := make([]store.ResolvedSlide, len(deck))
	copy(sorted, deck)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return sorted
}
