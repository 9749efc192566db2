package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"hazmat-classifier/internal/domain"
)

// fieldColumns whitelists the metadata fields QueryByExactField may touch.
// Everything else is rejected before reaching SQL.
var fieldColumns = map[string]string{
	"sku":       "sku",
	"un_number": "un_number",
	"base_name": "base_name",
}

type candidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates the pgx-backed knowledge-base accessor.
// It implements both domain.CandidateStore and domain.CandidateWriter.
func NewCandidateRepository(pool *pgxpool.Pool) *candidateRepository {
	return &candidateRepository{pool: pool}
}

// NewCandidateStore narrows the repository to its read side.
func NewCandidateStore(pool *pgxpool.Pool) domain.CandidateStore {
	return NewCandidateRepository(pool)
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *candidateRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

const candidateColumns = `id, source, text, embedding, un_number, base_name, qualifier,
	hazard_class, packing_group, label_codes, special_provisions, erg_guide, sku, created_at`

func (r *candidateRepository) LoadCandidates(ctx context.Context) ([]domain.CandidateEntry, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM hazmat_candidates
		WHERE embedding IS NOT NULL
		ORDER BY id ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var entries []domain.CandidateEntry
	for rows.Next() {
		entry, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (r *candidateRepository) QueryByExactField(ctx context.Context, source domain.CandidateSource, field, value string) (*domain.CandidateEntry, error) {
	column, ok := fieldColumns[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not queryable", field)
	}

	query := `
		SELECT ` + candidateColumns + `
		FROM hazmat_candidates
		WHERE source = $1 AND ` + column + ` = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, string(source), value)
	entry, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *candidateRepository) BulkInsertCandidates(ctx context.Context, entries []domain.CandidateEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		var embedding interface{}
		if len(e.Embedding) > 0 {
			embedding = pgvector.NewVector(e.Embedding)
		}
		rows[i] = []interface{}{
			e.ID,
			string(e.Source),
			e.Text,
			embedding,
			e.Metadata.UNNumber,
			e.Metadata.BaseName,
			e.Metadata.Qualifier,
			e.Metadata.HazardClass,
			string(e.Metadata.PackingGroup),
			e.Metadata.LabelCodes,
			e.Metadata.SpecialProvisions,
			e.Metadata.ERGGuide,
			e.Metadata.SKU,
			e.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"hazmat_candidates"},
		[]string{"id", "source", "text", "embedding", "un_number", "base_name", "qualifier",
			"hazard_class", "packing_group", "label_codes", "special_provisions", "erg_guide", "sku", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert candidates: %w", err)
	}

	return nil
}

func (r *candidateRepository) DeleteBySource(ctx context.Context, source domain.CandidateSource) (int64, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx,
		`DELETE FROM hazmat_candidates WHERE source = $1`, string(source))
	if err != nil {
		return 0, fmt.Errorf("failed to delete candidates for source %s: %w", source, err)
	}
	return tag.RowsAffected(), nil
}

func (r *candidateRepository) ListUnembedded(ctx context.Context, limit int) ([]domain.CandidateEntry, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM hazmat_candidates
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unembedded candidates: %w", err)
	}
	defer rows.Close()

	var entries []domain.CandidateEntry
	for rows.Next() {
		entry, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (r *candidateRepository) SetEmbeddings(ctx context.Context, entries []domain.CandidateEntry) error {
	exec := r.getExecutor(ctx)
	for _, e := range entries {
		_, err := exec.Exec(ctx,
			`UPDATE hazmat_candidates SET embedding = $1 WHERE id = $2`,
			pgvector.NewVector(e.Embedding), e.ID)
		if err != nil {
			return fmt.Errorf("failed to set embedding for %s: %w", e.ID, err)
		}
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.CandidateEntry, error) {
	var (
		entry        domain.CandidateEntry
		source       string
		packingGroup string
		embedding    *pgvector.Vector
	)
	err := row.Scan(
		&entry.ID,
		&source,
		&entry.Text,
		&embedding,
		&entry.Metadata.UNNumber,
		&entry.Metadata.BaseName,
		&entry.Metadata.Qualifier,
		&entry.Metadata.HazardClass,
		&packingGroup,
		&entry.Metadata.LabelCodes,
		&entry.Metadata.SpecialProvisions,
		&entry.Metadata.ERGGuide,
		&entry.Metadata.SKU,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CandidateEntry{}, err
		}
		return domain.CandidateEntry{}, fmt.Errorf("failed to scan candidate: %w", err)
	}
	entry.Source = domain.CandidateSource(source)
	entry.Metadata.PackingGroup = domain.PackingGroup(packingGroup)
	if embedding != nil {
		entry.Embedding = embedding.Slice()
	}
	return entry, nil
}
