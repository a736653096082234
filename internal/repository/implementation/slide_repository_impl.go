package implementation

import (
	"context"
	"errors"
	"fmt"

	"deck-builder-be/internal/entity"
	"deck-builder-be/internal/mapper"
	"deck-builder-be/internal/model"
	"deck-builder-be/internal/repository/contract"
	"deck-builder-be/internal/repository/scope"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type SlideRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SlideMapper
}

func NewSlideRepository(db *gorm.DB) contract.SlideRepository {
	return &SlideRepositoryImpl{
		db:     db,
		mapper: mapper.NewSlideMapper(),
	}
}

func (r *SlideRepositoryImpl) Create(ctx context.Context, slide *entity.Slide, embedding []float32) error {
	m := r.mapper.ToModel(slide)
	m.EmbeddingValue = pgvector.NewVector(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*slide = *r.mapper.ToEntity(m)
	return nil
}

func (r *SlideRepositoryImpl) CreateBulk(ctx context.Context, slides []*entity.Slide, embeddings [][]float32) error {
	if len(slides) != len(embeddings) {
		return fmt.Errorf("slide/embedding count mismatch: %d vs %d", len(slides), len(embeddings))
	}

	models := make([]*model.SlideEmbedding, len(slides))
	for i, s := range slides {
		models[i] = r.mapper.ToModel(s)
		models[i].EmbeddingValue = pgvector.NewVector(embeddings[i])
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*slides[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *SlideRepositoryImpl) FindByKey(ctx context.Context, sessionCode string, slideNumber int) (*entity.Slide, error) {
	var m model.SlideEmbedding
	err := r.db.WithContext(ctx).
		Where("session_code = ? AND slide_number = ?", sessionCode, slideNumber).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SlideRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SlideEmbedding{}).Count(&count).Error
	return count, err
}

func (r *SlideRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredSlide, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		model.SlideEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("slide_embeddings").
		Select("slide_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Scopes(scope.ExcludeSoftDelete).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredSlide, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredSlide{
			Slide:      r.mapper.ToEntity(&res.SlideEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *SlideRepositoryImpl) SearchText(ctx context.Context, query string, limit int) ([]*entity.Slide, error) {
	if limit <= 0 {
		limit = 5
	}

	var models []*model.SlideEmbedding
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("title ILIKE ? OR content ILIKE ?", pattern, pattern).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	slides := make([]*entity.Slide, len(models))
	for i, m := range models {
		slides[i] = r.mapper.ToEntity(m)
	}
	return slides, nil
}
