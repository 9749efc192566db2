package domain

import "context"

// VectorEncoder defines the interface for generating embeddings.
// Implementations must return one L2-normalized vector per input text.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// CandidateStore is the external accessor for the regulatory knowledge base.
type CandidateStore interface {
	// LoadCandidates returns every knowledge-base entry with its embedding.
	LoadCandidates(ctx context.Context) ([]CandidateEntry, error)

	// QueryByExactField finds a single entry by an exact metadata field match
	// within a source category. Returns nil, nil when no entry matches.
	QueryByExactField(ctx context.Context, source CandidateSource, field, value string) (*CandidateEntry, error)
}

// EmbeddingCache stores previously computed embeddings keyed by a content
// hash of the normalized input text. It is not authoritative: both Get
// misses and Put failures are safe to ignore.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Put(ctx context.Context, text string, embedding []float32, model string)
}

// HistoricalAgreement counts prior classifications that resolved a similar
// query to the same UN number, and records new outcomes for future counts.
type HistoricalAgreement interface {
	CountAgreeing(ctx context.Context, queryText, unNumber string) (int, error)
	Record(ctx context.Context, queryText, unNumber string, confidence float64) error
}
