package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SlideEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionCode    string          `gorm:"type:varchar(64);not null;index:idx_slide_key"`
	SlideNumber    int             `gorm:"not null;index:idx_slide_key"`
	Title          string          `gorm:"type:text"`
	SessionTitle   string          `gorm:"type:text"`
	Content        string          `gorm:"type:text"`
	PptUrl         string          `gorm:"type:text"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (SlideEmbedding) TableName() string {
	return "slide_embeddings"
}
