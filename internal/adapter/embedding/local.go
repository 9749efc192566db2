package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// LocalProvider is the deterministic fallback embedder. It hashes character
// trigrams with FNV-1a into a fixed-dimension count vector and L2-normalizes
// the result. Same text and dimension always produce a bit-identical vector,
// with no external dependency, so it can never fail.
type LocalProvider struct {
	dim int
}

func NewLocalProvider(dim int) *LocalProvider {
	if dim <= 0 {
		dim = 384
	}
	return &LocalProvider{dim: dim}
}

const (
	ngramSize      = 3
	boundaryMarker = "#"

	fnvOffset32 = uint32(2166136261)
	fnvPrime32  = uint32(16777619)
)

func (p *LocalProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

func (p *LocalProvider) embedOne(text string) []float32 {
	padded := boundaryMarker + strings.ToLower(text) + boundaryMarker
	vec := make([]float32, p.dim)

	runes := []rune(padded)
	if len(runes) < ngramSize {
		runes = append(runes, []rune(strings.Repeat(boundaryMarker, ngramSize-len(runes)))...)
	}

	for i := 0; i+ngramSize <= len(runes); i++ {
		h := fnv1a(string(runes[i : i+ngramSize]))
		idx := int(h) % p.dim
		if idx < 0 {
			idx = -idx
		}
		vec[idx]++
	}

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func fnv1a(s string) int32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return int32(h)
}

func (p *LocalProvider) Name() string {
	return fmt.Sprintf("local-fnv-%d", p.dim)
}

var _ Provider = (*LocalProvider)(nil)
