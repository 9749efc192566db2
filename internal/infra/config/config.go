package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type EmbeddingConfig struct {
	// Provider forces a specific provider ("openai", "gemini", "voyage",
	// "ollama", "local"). Empty means auto-detect by available credentials.
	Provider string
	Dim      int
	Timeout  int // seconds, per remote call

	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	VoyageKey   string
	VoyageModel string
	OllamaURL   string
	OllamaModel string
	RatePerSec  float64
	CacheSize   int // in-process LRU entries
}

type RetrievalConfig struct {
	SearchLimit int
	Alpha       float64
	RerankTopK  int
	MinScore    float64
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "hazmat-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "hazmat_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "hazmat_password"),
			Name:     getEnv("DB_NAME", "hazmat_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "hazmat-cache:6379"),
			Password: getSecret("REDIS_PASSWORD", "REDIS_PASSWORD_FILE", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
		},
		Embedding: EmbeddingConfig{
			Provider:    getEnv("EMBEDDING_PROVIDER", ""),
			Dim:         getEnvInt("EMBEDDING_DIM", 384),
			Timeout:     getEnvInt("EMBEDDING_TIMEOUT", 10),
			OpenAIKey:   getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			OpenAIModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			GeminiKey:   getSecret("GEMINI_API_KEY", "GEMINI_API_KEY_FILE", ""),
			GeminiModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
			VoyageKey:   getSecret("VOYAGE_API_KEY", "VOYAGE_API_KEY_FILE", ""),
			VoyageModel: getEnv("VOYAGE_EMBEDDING_MODEL", "voyage-3-lite"),
			OllamaURL:   getEnvWithAlt("OLLAMA_URL", "OLLAMA_EXTERNAL_URL", ""),
			OllamaModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			RatePerSec:  getEnvFloat("EMBEDDING_RATE_PER_SEC", 10),
			CacheSize:   getEnvInt("EMBEDDING_CACHE_SIZE", 4096),
		},
		Retrieval: RetrievalConfig{
			SearchLimit: getEnvInt("SEARCH_LIMIT", 10),
			Alpha:       getEnvFloat("HYBRID_ALPHA", 0.6),
			RerankTopK:  getEnvInt("RERANK_TOP_K", 5),
			MinScore:    getEnvFloat("MIN_SCORE", 0.35),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
