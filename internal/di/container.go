package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"hazmat-classifier/internal/adapter/claz_http"
	"hazmat-classifier/internal/adapter/embedding"
	"hazmat-classifier/internal/adapter/repository"
	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/infra/config"
	"hazmat-classifier/internal/infra/httpclient"
	"hazmat-classifier/internal/usecase"
	"hazmat-classifier/internal/usecase/pipeline"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	CandidateStore  domain.CandidateStore
	CandidateWriter domain.CandidateWriter
	HistoryRepo     domain.HistoricalAgreement
	TxManager       domain.TransactionManager

	// Retrieval
	Index   *pipeline.Index
	Encoder domain.VectorEncoder

	// Usecases
	ClassifyUsecase usecase.ClassifyUsecase

	// Handlers
	Handler *claz_http.Handler

	// Redis is nil when the embedding cache is disabled.
	Redis *redis.Client
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	candidateRepo := repository.NewCandidateRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	chain := embedding.NewChain(log, cfg.Embedding.Dim, remoteProviders(cfg, log)...)

	var encoder domain.VectorEncoder = chain
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache, err := embedding.NewRedisCache(rdb, cfg.Embedding.CacheSize, log)
		if err != nil {
			log.Warn("embedding_cache_init_failed", slog.Any("error", err))
		} else {
			encoder = embedding.NewCachedEncoder(chain, cache)
		}
	}

	index := pipeline.NewIndex(candidateRepo, log)

	classifyUsecase := usecase.NewClassifyUsecase(
		index, candidateRepo, encoder, historyRepo,
		usecase.ClassifyConfig{
			SearchLimit: cfg.Retrieval.SearchLimit,
			Alpha:       cfg.Retrieval.Alpha,
			RerankTopK:  cfg.Retrieval.RerankTopK,
			MinScore:    cfg.Retrieval.MinScore,
		},
		log,
	)

	return &ApplicationComponents{
		CandidateStore:  candidateRepo,
		CandidateWriter: candidateRepo,
		HistoryRepo:     historyRepo,
		TxManager:       txManager,
		Index:           index,
		Encoder:         encoder,
		ClassifyUsecase: classifyUsecase,
		Handler:         claz_http.NewHandler(classifyUsecase),
		Redis:           rdb,
	}
}

// remoteProviders builds the embedding fallback chain from configuration.
// An explicit EMBEDDING_PROVIDER pins one remote (or none for "local");
// otherwise every provider with credentials joins the chain in preference
// order. The deterministic local embedder is always appended by NewChain.
func remoteProviders(cfg *config.Config, log *slog.Logger) []embedding.Provider {
	client := httpclient.NewPooledClient(time.Duration(cfg.Embedding.Timeout) * time.Second)
	limiter := rate.NewLimiter(rate.Limit(cfg.Embedding.RatePerSec), 1)
	e := cfg.Embedding

	var providers []embedding.Provider
	add := func(name string, available bool, build func() embedding.Provider) {
		forced := e.Provider != ""
		if forced && e.Provider != name {
			return
		}
		if !available {
			if forced {
				log.Warn("embedding_provider_unavailable", slog.String("provider", name))
			}
			return
		}
		providers = append(providers, build())
	}

	add("openai", e.OpenAIKey != "", func() embedding.Provider {
		return embedding.NewOpenAIProvider(e.OpenAIKey, e.OpenAIModel, client, limiter)
	})
	add("gemini", e.GeminiKey != "", func() embedding.Provider {
		return embedding.NewGeminiProvider(e.GeminiKey, e.GeminiModel, client, limiter)
	})
	add("voyage", e.VoyageKey != "", func() embedding.Provider {
		return embedding.NewVoyageProvider(e.VoyageKey, e.VoyageModel, client, limiter)
	})
	add("ollama", e.OllamaURL != "", func() embedding.Provider {
		return embedding.NewOllamaProvider(e.OllamaURL, e.OllamaModel, client)
	})

	return providers
}
