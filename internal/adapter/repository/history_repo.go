package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hazmat-classifier/internal/domain"
)

// agreementMinConfidence keeps low-confidence outcomes from reinforcing
// themselves through the agreement count.
const agreementMinConfidence = 0.8

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates the pgx-backed classification history store.
func NewHistoryRepository(pool *pgxpool.Pool) domain.HistoricalAgreement {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) CountAgreeing(ctx context.Context, queryText, unNumber string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM classification_history
		WHERE query_text = $1 AND un_number = $2 AND confidence >= $3
	`, queryText, unNumber, agreementMinConfidence).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count agreeing classifications: %w", err)
	}
	return count, nil
}

func (r *historyRepository) Record(ctx context.Context, queryText, unNumber string, confidence float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO classification_history (id, query_text, un_number, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), queryText, unNumber, confidence, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return nil
}
