package mapper

import (
	"encoding/json"
	"time"

	"deck-builder-be/internal/entity"
	"deck-builder-be/internal/model"

	"gorm.io/datatypes"
)

type SlideMapper struct{}

func NewSlideMapper() *SlideMapper {
	return &SlideMapper{}
}

func (m *SlideMapper) ToEntity(e *model.SlideEmbedding) *entity.Slide {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]any
	if len(e.Metadata) > 0 {
		// Metadata is optional per slide; a corrupt blob is ignored rather
		// than failing the whole read.
		_ = json.Unmarshal(e.Metadata, &metadata)
	}

	return &entity.Slide{
		Id:           e.Id,
		SessionCode:  e.SessionCode,
		SlideNumber:  e.SlideNumber,
		Title:        e.Title,
		SessionTitle: e.SessionTitle,
		Content:      e.Content,
		PptUrl:       e.PptUrl,
		Metadata:     metadata,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *SlideMapper) ToModel(e *entity.Slide) *model.SlideEmbedding {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSON
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err == nil {
			metadata = raw
		}
	}

	return &model.SlideEmbedding{
		Id:           e.Id,
		SessionCode:  e.SessionCode,
		SlideNumber:  e.SlideNumber,
		Title:        e.Title,
		SessionTitle: e.SessionTitle,
		Content:      e.Content,
		PptUrl:       e.PptUrl,
		Metadata:     metadata,
		CreatedAt:    e.CreatedAt,
	}
}
