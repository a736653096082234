package dto

import (
	"time"

	"deck-builder-be/pkg/store"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
}

type StartDeckRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type StartDeckResponse struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
}

type ConfirmOutlineRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	// Optional client-edited outline; the server's pending outline is used
	// when omitted.
	Outline   *store.Outline         `json:"outline"`
	AllSlides []store.SlideCandidate `json:"all_slides"`
}

type ConfirmOutlineResponse struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
}

type ShowSessionResponse struct {
	SessionId     string                `json:"session_id"`
	Status        string                `json:"status"`
	Request       string                `json:"request,omitempty"`
	Outline       *store.Outline        `json:"outline,omitempty"`
	Deck          []store.ResolvedSlide `json:"deck,omitempty"`
	RevisionRound int                   `json:"revision_round"`
	LastError     string                `json:"last_error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type TraceEntryResponse struct {
	Seq   int         `json:"seq"`
	At    time.Time   `json:"at"`
	Event interface{} `json:"event"`
}

type DownloadManifestResponse struct {
	SessionId string             `json:"session_id"`
	Decks     []store.SourceDeck `json:"decks"`
}
