package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"hazmat-classifier/internal/domain"
)

// cacheKey is the content hash of the normalized input text, so identical
// queries from different callers always hit regardless of provider.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// RedisCache stores embeddings in Redis with an in-process LRU in front.
// It is not authoritative: every failure degrades to a miss and is logged
// at debug level only. Entries are never deleted here; eviction is left to
// the Redis deployment.
type RedisCache struct {
	rdb    *redis.Client
	front  *lru.Cache[string, []float32]
	logger *slog.Logger
}

func NewRedisCache(rdb *redis.Client, frontSize int, logger *slog.Logger) (*RedisCache, error) {
	front, err := lru.New[string, []float32](frontSize)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: rdb, front: front, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := cacheKey(text)

	if vec, ok := c.front.Get(key); ok {
		c.touch(ctx, key)
		return vec, true
	}

	if c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.HGet(ctx, key, "vector").Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("embedding_cache_get_failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		c.logger.Debug("embedding_cache_decode_failed", slog.String("error", err.Error()))
		return nil, false
	}

	c.front.Add(key, vec)
	c.touch(ctx, key)
	return vec, true
}

func (c *RedisCache) Put(ctx context.Context, text string, vec []float32, model string) {
	key := cacheKey(text)
	c.front.Add(key, vec)

	if c.rdb == nil {
		return
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	err = c.rdb.HSet(ctx, key,
		"vector", string(raw),
		"model", model,
		"last_accessed", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		c.logger.Debug("embedding_cache_put_failed", slog.String("error", err.Error()))
	}
}

// touch records a hit for external eviction policy. Last-writer-wins is
// fine; the counter is advisory.
func (c *RedisCache) touch(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "hit_count", 1)
	pipe.HSet(ctx, key, "last_accessed", time.Now().UTC().Format(time.RFC3339))
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("embedding_cache_touch_failed", slog.String("error", err.Error()))
	}
}

var _ domain.EmbeddingCache = (*RedisCache)(nil)

// CachedEncoder wraps a VectorEncoder with an EmbeddingCache. Only cache
// misses reach the underlying encoder; fresh vectors are written back.
type CachedEncoder struct {
	inner domain.VectorEncoder
	cache domain.EmbeddingCache
}

func NewCachedEncoder(inner domain.VectorEncoder, cache domain.EmbeddingCache) *CachedEncoder {
	return &CachedEncoder{inner: inner, cache: cache}
}

func (e *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.Get(ctx, text); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := e.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	model := e.inner.Version()
	for j, vec := range fresh {
		vectors[missIdx[j]] = vec
		e.cache.Put(ctx, missTexts[j], vec, model)
	}
	return vectors, nil
}

func (e *CachedEncoder) Version() string {
	return e.inner.Version()
}

var _ domain.VectorEncoder = (*CachedEncoder)(nil)
