package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hazmat-classifier/internal/domain"
)

// MetadataFilter is one AND-ed predicate against a candidate metadata
// field. Exact takes precedence when set; otherwise Pattern is applied.
type MetadataFilter struct {
	Field   string // "base_name", "hazard_class", "un_number", "source"
	Exact   string
	Pattern *regexp.Regexp
}

// SearchOptions control one hybrid search pass.
type SearchOptions struct {
	K       int
	Alpha   float64
	Filters []MetadataFilter
}

// ScoredCandidate is a knowledge-base entry with its hybrid (and later
// reranked) score.
type ScoredCandidate struct {
	Entry        domain.CandidateEntry
	VectorScore  float64
	LexicalScore float64
	Score        float64
}

// Index is the process-wide, read-only candidate index. The first load is
// guarded by singleflight so concurrent cold-start requests share one store
// read; a failed load is retried on the next request rather than poisoning
// the process.
type Index struct {
	store  domain.CandidateStore
	logger *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries []domain.CandidateEntry
	dim     int
	loaded  bool
}

func NewIndex(store domain.CandidateStore, logger *slog.Logger) *Index {
	return &Index{store: store, logger: logger}
}

// Load makes the index ready, loading candidates on first use. Mixed
// embedding dimensions are rejected: that is a corrupt index build and
// classification against it would be meaningless.
func (ix *Index) Load(ctx context.Context) error {
	ix.mu.RLock()
	loaded := ix.loaded
	ix.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := ix.group.Do("load", func() (interface{}, error) {
		start := time.Now()
		entries, err := ix.store.LoadCandidates(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: store returned no candidates", domain.ErrIndexUnavailable)
		}

		dim := len(entries[0].Embedding)
		for _, e := range entries {
			if len(e.Embedding) != dim {
				return nil, fmt.Errorf("%w: mixed embedding dimensions (%d vs %d in entry %s)",
					domain.ErrIndexUnavailable, dim, len(e.Embedding), e.ID)
			}
		}

		ix.mu.Lock()
		ix.entries = entries
		ix.dim = dim
		ix.loaded = true
		ix.mu.Unlock()

		ix.logger.Info("candidate_index_loaded",
			slog.Int("entry_count", len(entries)),
			slog.Int("dim", dim),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, nil
	})
	return err
}

// Dim returns the embedding dimension of the loaded index (0 if unloaded).
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Search ranks candidates by the weighted blend of vector similarity and
// lexical overlap. Embeddings are pre-normalized, so the dot product equals
// cosine similarity. Filters are AND-ed; an empty result under filters is
// returned as-is, since the orchestrator owns the ungated fallback.
func (ix *Index) Search(queryVector []float32, queryText string, opts SearchOptions) []ScoredCandidate {
	ix.mu.RLock()
	entries := ix.entries
	ix.mu.RUnlock()

	if opts.K <= 0 {
		opts.K = 10
	}
	queryTokens := tokenize(queryText)

	var scored []ScoredCandidate
	for _, entry := range entries {
		if !passesFilters(entry, opts.Filters) {
			continue
		}
		vecSim := dot(queryVector, entry.Embedding)
		kwScore := lexicalOverlap(queryTokens, entry.Text)
		scored = append(scored, ScoredCandidate{
			Entry:        entry,
			VectorScore:  vecSim,
			LexicalScore: kwScore,
			Score:        opts.Alpha*vecSim + (1-opts.Alpha)*kwScore,
		})
	}

	scored = SortCandidates(scored)

	if len(scored) > opts.K {
		scored = scored[:opts.K]
	}
	return scored
}

// SortCandidates orders by score descending with a stable ID tie-break,
// so identical inputs always produce identical rankings.
func SortCandidates(candidates []ScoredCandidate) []ScoredCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})
	return candidates
}

func passesFilters(entry domain.CandidateEntry, filters []MetadataFilter) bool {
	for _, f := range filters {
		value := metadataField(entry, f.Field)
		if f.Exact != "" {
			if value != f.Exact {
				return false
			}
			continue
		}
		if f.Pattern != nil && !f.Pattern.MatchString(value) {
			return false
		}
	}
	return true
}

func metadataField(entry domain.CandidateEntry, field string) string {
	switch field {
	case "base_name":
		return strings.ToLower(entry.Metadata.BaseName)
	case "hazard_class":
		return entry.Metadata.HazardClass
	case "un_number":
		return entry.Metadata.UNNumber
	case "source":
		return string(entry.Source)
	case "sku":
		return entry.Metadata.SKU
	default:
		return ""
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// lexicalOverlap is the fraction of query tokens present in the candidate
// text.
func lexicalOverlap(queryTokens []string, candidateText string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	candidateSet := make(map[string]bool)
	for _, tok := range tokenize(candidateText) {
		candidateSet[tok] = true
	}
	var hits int
	for _, tok := range queryTokens {
		if candidateSet[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}
