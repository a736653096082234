package bootstrap

import (
	"context"
	"log"

	"deck-builder-be/internal/config"
	"deck-builder-be/internal/controller"
	"deck-builder-be/internal/pkg/logger"
	"deck-builder-be/internal/repository/implementation"
	"deck-builder-be/internal/repository/memory"
	"deck-builder-be/internal/service"
	"deck-builder-be/internal/websocket"
	"deck-builder-be/pkg/deck"
	"deck-builder-be/pkg/deck/trace"
	"deck-builder-be/pkg/embedding"
	"deck-builder-be/pkg/embedding/jina"
	"deck-builder-be/pkg/llm/factory"

	pktNats "deck-builder-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DeckController   controller.IDeckController
	SearchController controller.ISearchController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS (nil-safe: terminal notifications are skipped when unavailable)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Event fan-out stays local", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/deck_events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Providers
	// Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	slideRepo := implementation.NewSlideRepository(db)
	sessionRepo := memory.NewSessionRepository(cfg.Deck.MaxSessions)

	// 5. Workflow plumbing
	traceStore := trace.NewStore(2048)
	policy := deck.Policy{
		MaxAttempts:           cfg.Deck.MaxAttempts,
		MaxRevisionRounds:     cfg.Deck.MaxRevisionRounds,
		SearchLimit:           cfg.Deck.SearchLimit,
		InitialSearchLimit:    cfg.Deck.InitialSearchLimit,
		MaxCandidatesForOffer: cfg.Deck.MaxCandidatesForOffer,
		GatewayTimeoutSeconds: cfg.Deck.GatewayTimeoutSeconds,
	}

	// 6. Services
	searchService := service.NewSearchService(slideRepo, embeddingProvider, sysLogger)
	eventPublisher := service.NewEventPublisherService(pubSub, cfg.Deck.EventTopic, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Deck.EventTopic,
		wsHub,
		traceStore,
		natsPub,
	)
	deckService := service.NewDeckService(
		sessionRepo,
		searchService,
		llmProvider,
		policy,
		eventPublisher,
		traceStore,
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		DeckController:   controller.NewDeckController(deckService, wsHub, sysLogger),
		SearchController: controller.NewSearchController(searchService),

		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
