package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

// MarketRepository handles prediction market database operations, including
// the externally computed sentiment and news signal feeds.
type MarketRepository struct {
	db *sql.DB
}

// NewMarketRepository creates a new market repository.
func NewMarketRepository(db *sql.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// GetMarket fetches a market by ID. Returns nil when not found.
func (r *MarketRepository) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	query := `
		SELECT id, question, claim_id, status, outcome, resolved_at, closes_at, created_at, updated_at
		FROM markets
		WHERE id = $1
	`

	var m models.Market
	var claimID sql.NullString
	var outcome sql.NullBool
	var resolvedAt, closesAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Question, &claimID, &m.Status, &outcome, &resolvedAt, &closesAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", id, err)
	}

	m.ClaimID = claimID.String
	if outcome.Valid {
		v := outcome.Bool
		m.Outcome = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	if closesAt.Valid {
		t := closesAt.Time
		m.ClosesAt = &t
	}

	return &m, nil
}

// ResolveMarket records the binary outcome decided by the external resolution
// authority. The engine reads this; it never decides outcomes itself.
func (r *MarketRepository) ResolveMarket(ctx context.Context, id string, outcome bool, resolvedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE markets
		SET status = $1, outcome = $2, resolved_at = $3, updated_at = $4
		WHERE id = $5
	`, string(models.MarketResolved), outcome, resolvedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve market %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("market not found: %s", id)
	}

	return nil
}

// LatestSentimentSignal returns the most recent social-sentiment aggregate
// for a market, or nil when no signal has been computed.
func (r *MarketRepository) LatestSentimentSignal(ctx context.Context, marketID string) (*models.SentimentSignal, error) {
	var s models.SentimentSignal
	err := r.db.QueryRowContext(ctx, `
		SELECT momentum, volume, computed_at
		FROM sentiment_signals
		WHERE market_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, marketID).Scan(&s.Momentum, &s.Volume, &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiment signal for market %s: %w", marketID, err)
	}
	return &s, nil
}

// LatestNewsSignal returns the most recent credibility-weighted news
// aggregate for a market, or nil when no signal has been computed.
func (r *MarketRepository) LatestNewsSignal(ctx context.Context, marketID string) (*models.NewsSignal, error) {
	var s models.NewsSignal
	err := r.db.QueryRowContext(ctx, `
		SELECT lean, avg_credibility, article_count, computed_at
		FROM news_signals
		WHERE market_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, marketID).Scan(&s.Lean, &s.AvgCredibility, &s.ArticleCount, &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get news signal for market %s: %w", marketID, err)
	}
	return &s, nil
}
