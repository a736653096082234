package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Deck     DeckConfig
	Ai       AIConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// DeckConfig bounds the deck-building workflow.
type DeckConfig struct {
	MaxAttempts           int
	MaxRevisionRounds     int
	SearchLimit           int
	InitialSearchLimit    int
	MaxCandidatesForOffer int
	GatewayTimeoutSeconds int
	MaxSessions           int
	EventTopic            string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Deck: DeckConfig{
			MaxAttempts:           getEnvAsInt("DECK_MAX_ATTEMPTS", 3),
			MaxRevisionRounds:     getEnvAsInt("DECK_MAX_REVISION_ROUNDS", 1),
			SearchLimit:           getEnvAsInt("DECK_SEARCH_LIMIT", 10),
			InitialSearchLimit:    getEnvAsInt("DECK_INITIAL_SEARCH_LIMIT", 30),
			MaxCandidatesForOffer: getEnvAsInt("DECK_MAX_CANDIDATES_FOR_OFFER", 5),
			GatewayTimeoutSeconds: getEnvAsInt("DECK_GATEWAY_TIMEOUT_SECONDS", 60),
			MaxSessions:           getEnvAsInt("DECK_MAX_SESSIONS", 256),
			EventTopic:            getEnv("DECK_EVENT_TOPIC_NAME", "DECK_WORKFLOW_EVENTS"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
