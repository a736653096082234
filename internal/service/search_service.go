package service

import (
	"context"
	"fmt"

	"deck-builder-be/internal/entity"
	"deck-builder-be/internal/pkg/logger"
	"deck-builder-be/internal/repository/contract"
	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/embedding"
	"deck-builder-be/pkg/store"
)

const snippetLength = 200

type ISearchService interface {
	// Search implements deck.SlideSearcher against the slide index.
	Search(ctx context.Context, query string, limit int) ([]store.SlideCandidate, error)
}

type searchService struct {
	slideRepo         contract.SlideRepository
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewSearchService(
	slideRepo contract.SlideRepository,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) ISearchService {
	return &searchService{
		slideRepo:         slideRepo,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

var _ deck.SlideSearcher = (*searchService)(nil)

// Search embeds the query and ranks slides by cosine similarity. When the
// embedding provider is down it degrades to lexical matching; when the index
// itself is unreachable the error surfaces as a retrieval failure.
func (s *searchService) Search(ctx context.Context, query string, limit int) ([]store.SlideCandidate, error) {
	vector, err := s.embeddingProvider.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		s.logger.Warn("SearchService", "Embedding failed, falling back to text search", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return s.searchText(ctx, query, limit)
	}

	scored, err := s.slideRepo.SearchSimilar(ctx, vector.Embedding.Values, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %s", deck.ErrRetrievalUnavailable, err)
	}

	candidates := make([]store.SlideCandidate, len(scored))
	for i, sc := range scored {
		candidates[i] = toCandidate(sc.Slide, sc.Similarity)
	}
	return candidates, nil
}

func (s *searchService) searchText(ctx context.Context, query string, limit int) ([]store.SlideCandidate, error) {
	slides, err := s.slideRepo.SearchText(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %s", deck.ErrRetrievalUnavailable, err)
	}

	candidates := make([]store.SlideCandidate, len(slides))
	for i, slide := range slides {
		candidates[i] = toCandidate(slide, 0)
	}
	return candidates, nil
}

func toCandidate(slide *entity.Slide, score float64) store.SlideCandidate {
	snippet := slide.Content
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}
	return store.SlideCandidate{
		SlideId:      slide.Id.String(),
		SessionCode:  slide.SessionCode,
		SlideNumber:  slide.SlideNumber,
		Title:        slide.Title,
		SessionTitle: slide.SessionTitle,
		Content:      slide.Content,
		Snippet:      snippet,
		PptUrl:       slide.PptUrl,
		Score:        score,
	}
}
