package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

// InferenceLogRepository handles inference log database operations.
type InferenceLogRepository struct {
	db *sql.DB
}

// NewInferenceLogRepository creates a new repository.
func NewInferenceLogRepository(db *sql.DB) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

// Create logs a new inference call.
func (r *InferenceLogRepository) Create(ctx context.Context, log models.InferenceLog) error {
	query := `
		INSERT INTO inference_logs (
			provider, model, operation, tokens_used, input_tokens, output_tokens,
			cost_usd, latency_ms, status, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.Provider,
		log.Model,
		log.Operation,
		log.TokensUsed,
		log.InputTokens,
		log.OutputTokens,
		log.CostUSD,
		log.LatencyMs,
		log.Status,
		log.ErrorMessage,
		sql.NullString{String: log.Metadata, Valid: log.Metadata != ""},
	)

	return err
}

// GetStats returns aggregated statistics for calls since the given time.
func (r *InferenceLogRepository) GetStats(ctx context.Context, since time.Time) (*models.InferenceLogStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COUNT(*) FILTER (WHERE status = 'success'),
		       COUNT(*) FILTER (WHERE status = 'error'),
		       COALESCE(AVG(latency_ms), 0)
		FROM inference_logs
		WHERE created_at >= $1
	`

	var stats models.InferenceLogStats
	err := r.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalCalls,
		&stats.TotalTokens,
		&stats.TotalCostUSD,
		&stats.SuccessfulCalls,
		&stats.FailedCalls,
		&stats.AvgLatencyMs,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get inference log stats: %w", err)
	}

	return &stats, nil
}
