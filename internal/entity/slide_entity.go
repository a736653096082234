package entity

import (
	"time"

	"github.com/google/uuid"
)

// Slide is one indexed slide from a source presentation. SessionCode plus
// SlideNumber identify it uniquely across the whole library.
type Slide struct {
	Id           uuid.UUID
	SessionCode  string
	SlideNumber  int
	Title        string
	SessionTitle string
	Content      string
	PptUrl       string
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
