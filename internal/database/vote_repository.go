package database

import (
	"context"
	"database/sql"
	"fmt"
)

// VoteRepository aggregates crowd votes in SQL. The engine consumes the
// aggregate read-only and never re-derives it from individual votes.
type VoteRepository struct {
	db *sql.DB
}

// NewVoteRepository creates a new vote repository.
func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Aggregate recomputes the vote aggregation for a market on demand.
func (r *VoteRepository) Aggregate(ctx context.Context, marketID string) (total, yes, no int, avgConfidence float64, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE vote = TRUE),
		       COUNT(*) FILTER (WHERE vote = FALSE),
		       COALESCE(AVG(confidence), 0)
		FROM market_votes
		WHERE market_id = $1
	`

	if err = r.db.QueryRowContext(ctx, query, marketID).Scan(&total, &yes, &no, &avgConfidence); err != nil {
		err = fmt.Errorf("failed to aggregate votes for market %s: %w", marketID, err)
	}
	return
}
