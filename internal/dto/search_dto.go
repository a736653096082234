package dto

import "deck-builder-be/pkg/store"

type SlideSearchRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type SlideSearchResponse struct {
	Query   string                 `json:"query"`
	Results []store.SlideCandidate `json:"results"`
	Total   int                    `json:"total"`
}
