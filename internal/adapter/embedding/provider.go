package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"hazmat-classifier/internal/domain"
)

// Provider turns texts into embedding vectors. Remote providers may fail;
// the chain absorbs those failures.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Chain tries providers in priority order until one succeeds. The last
// provider must be infallible (the local hashing provider), so Encode
// never returns an error to the caller in practice. A failed provider is
// not retried; the chain advances immediately.
type Chain struct {
	providers []Provider
	logger    *slog.Logger

	mu     sync.RWMutex
	active string // name of the provider that served the last Encode
}

// NewChain builds a provider chain. The local fallback is appended
// unconditionally so the chain always terminates with a provider that
// cannot fail.
func NewChain(logger *slog.Logger, dim int, remotes ...Provider) *Chain {
	providers := make([]Provider, 0, len(remotes)+1)
	providers = append(providers, remotes...)
	providers = append(providers, NewLocalProvider(dim))
	return &Chain{providers: providers, logger: logger}
}

// Encode implements domain.VectorEncoder. Every returned vector is
// re-normalized to unit L2 norm regardless of which provider produced it.
func (c *Chain) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, p := range c.providers {
		start := time.Now()
		vectors, err := p.Embed(ctx, texts)
		if err != nil {
			c.logger.Warn("embedding_provider_failed",
				slog.String("provider", p.Name()),
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(start)))
			lastErr = err
			continue
		}
		if len(vectors) != len(texts) {
			c.logger.Warn("embedding_provider_count_mismatch",
				slog.String("provider", p.Name()),
				slog.Int("want", len(texts)),
				slog.Int("got", len(vectors)))
			lastErr = fmt.Errorf("provider %s returned %d vectors for %d texts", p.Name(), len(vectors), len(texts))
			continue
		}
		for i := range vectors {
			normalize(vectors[i])
		}
		c.mu.Lock()
		c.active = p.Name()
		c.mu.Unlock()
		c.logger.Debug("embedding_completed",
			slog.String("provider", p.Name()),
			slog.Int("text_count", len(texts)),
			slog.Duration("elapsed", time.Since(start)))
		return vectors, nil
	}

	// Unreachable as long as the local provider terminates the chain.
	return nil, fmt.Errorf("all embedding providers failed: %w", lastErr)
}

// Version reports the provider that served the most recent Encode, so
// cache entries record the model that actually produced their vector.
// Before the first Encode it reports the chain head.
func (c *Chain) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active != "" {
		return c.active
	}
	return c.providers[0].Name()
}

var _ domain.VectorEncoder = (*Chain)(nil)

// normalize scales v to unit L2 norm in place. An all-zero vector is left
// untouched (norm treated as 1).
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
