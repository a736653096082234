package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"deck-builder-be/internal/config"
	"deck-builder-be/internal/entity"
	"deck-builder-be/internal/repository/implementation"
	"deck-builder-be/pkg/database"
	"deck-builder-be/pkg/embedding"
	"deck-builder-be/pkg/embedding/jina"
)

// seedSession is one source presentation in the library file.
type seedSession struct {
	SessionCode  string      `json:"session_code"`
	SessionTitle string      `json:"session_title"`
	PptUrl       string      `json:"ppt_url"`
	Slides       []seedSlide `json:"slides"`
}

type seedSlide struct {
	SlideNumber int            `json:"slide_number"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
}

func main() {
	libraryPath := flag.String("file", "slide_library.json", "Path to the slide library JSON file")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		provider = jina.NewJinaProvider(cfg.Keys.Jina)
	default:
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	raw, err := os.ReadFile(*libraryPath)
	if err != nil {
		log.Fatalf("Error: Failed to read library file %s: %v", *libraryPath, err)
	}

	var sessions []seedSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		log.Fatalf("Error: Failed to parse library file: %v", err)
	}

	repo := implementation.NewSlideRepository(db)
	ctx := context.Background()

	var slides []*entity.Slide
	var vectors [][]float32

	for _, session := range sessions {
		for _, s := range session.Slides {
			text := s.Title + "\n" + s.Content
			res, err := provider.Generate(text, "RETRIEVAL_DOCUMENT")
			if err != nil {
				log.Printf("Warn: Failed to embed %s slide %d: %v. Skipping...", session.SessionCode, s.SlideNumber, err)
				continue
			}

			slides = append(slides, &entity.Slide{
				SessionCode:  session.SessionCode,
				SlideNumber:  s.SlideNumber,
				Title:        s.Title,
				SessionTitle: session.SessionTitle,
				Content:      s.Content,
				PptUrl:       session.PptUrl,
				Metadata:     s.Metadata,
			})
			vectors = append(vectors, res.Embedding.Values)
		}
		log.Printf("Embedded session %s (%d slides)", session.SessionCode, len(session.Slides))
	}

	if len(slides) == 0 {
		log.Fatal("Error: Nothing to seed")
	}

	if err := repo.CreateBulk(ctx, slides, vectors); err != nil {
		log.Fatalf("Error: Bulk insert failed: %v", err)
	}

	total, _ := repo.Count(ctx)
	log.Printf("✅ Seeded %d slides (library now holds %d)", len(slides), total)
}
