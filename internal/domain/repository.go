package domain

import "context"

// CandidateWriter is the write side of the knowledge base, used by the
// loading and embedding-backfill tooling. Serving paths only ever read.
type CandidateWriter interface {
	// BulkInsertCandidates inserts entries in one streaming batch.
	BulkInsertCandidates(ctx context.Context, entries []CandidateEntry) error

	// DeleteBySource removes every entry of one source category, so a
	// reload can replace a category atomically inside a transaction.
	DeleteBySource(ctx context.Context, source CandidateSource) (int64, error)

	// ListUnembedded returns up to limit entries whose embedding has not
	// been computed yet.
	ListUnembedded(ctx context.Context, limit int) ([]CandidateEntry, error)

	// SetEmbeddings writes the embeddings carried by the given entries.
	SetEmbeddings(ctx context.Context, entries []CandidateEntry) error
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
