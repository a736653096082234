package contract

import (
	"context"

	"deck-builder-be/internal/entity"
)

// ScoredSlide wraps Slide with its similarity score
type ScoredSlide struct {
	Slide      *entity.Slide
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type SlideRepository interface {
	Create(ctx context.Context, slide *entity.Slide, embedding []float32) error
	CreateBulk(ctx context.Context, slides []*entity.Slide, embeddings [][]float32) error
	FindByKey(ctx context.Context, sessionCode string, slideNumber int) (*entity.Slide, error)
	Count(ctx context.Context) (int64, error)
	// SearchSimilar ranks slides by cosine similarity against the query vector
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*ScoredSlide, error)
	// SearchText is the lexical fallback when no query embedding is available
	SearchText(ctx context.Context, query string, limit int) ([]*entity.Slide, error)
}
