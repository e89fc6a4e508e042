package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/lib/pq"
)

// ClaimRepository handles claim and verdict database operations.
type ClaimRepository struct {
	db *sql.DB
}

// NewClaimRepository creates a new claim repository.
func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// GetClaim fetches a claim and its verdict, if one exists.
func (r *ClaimRepository) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	query := `
		SELECT c.id, c.claim_text, c.original_text, c.source_platform, c.source_author,
		       c.source_url, c.source_timestamp, c.created_at, c.verified_at,
		       v.status, v.explanation, v.confidence, v.key_evidence_points,
		       v.sources, v.evidence_details, v.provider, v.model, v.created_at
		FROM claims c
		LEFT JOIN verdicts v ON v.claim_id = c.id
		WHERE c.id = $1
	`

	var claim models.Claim
	var originalText, sourceAuthor, sourceURL sql.NullString
	var verifiedAt sql.NullTime

	var vStatus, vExplanation, vProvider, vModel sql.NullString
	var vConfidence sql.NullFloat64
	var vKeyPoints, vSources []string
	var vEvidenceJSON []byte
	var vCreatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&claim.ID, &claim.ClaimText, &originalText,
		&claim.Source.Platform, &sourceAuthor, &sourceURL, &claim.Source.Timestamp,
		&claim.CreatedAt, &verifiedAt,
		&vStatus, &vExplanation, &vConfidence,
		pq.Array(&vKeyPoints), pq.Array(&vSources), &vEvidenceJSON,
		&vProvider, &vModel, &vCreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim %s: %w", id, err)
	}

	claim.OriginalText = originalText.String
	claim.Source.Author = sourceAuthor.String
	claim.Source.URL = sourceURL.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		claim.VerifiedAt = &t
	}

	if vStatus.Valid {
		verdict := models.Verdict{
			ClaimID:           claim.ID,
			Status:            models.ParseVerdictStatus(vStatus.String),
			Explanation:       vExplanation.String,
			Confidence:        vConfidence.Float64,
			KeyEvidencePoints: vKeyPoints,
			Sources:           vSources,
			Provider:          vProvider.String,
			Model:             vModel.String,
			CreatedAt:         vCreatedAt.Time,
		}
		if len(vEvidenceJSON) > 0 {
			if err := json.Unmarshal(vEvidenceJSON, &verdict.EvidenceDetails); err != nil {
				return nil, fmt.Errorf("failed to decode evidence details for claim %s: %w", id, err)
			}
		}
		claim.Verdict = &verdict
	}

	return &claim, nil
}

// SaveVerdict persists a verdict as a single atomic replace. Re-verification
// overwrites the previous verdict in one statement; concurrent runs for the
// same claim are serialized by the caller, so last-write-wins here is safe.
func (r *ClaimRepository) SaveVerdict(ctx context.Context, verdict models.Verdict) error {
	verdict.Normalize()

	evidenceJSON, err := json.Marshal(verdict.EvidenceDetails)
	if err != nil {
		return fmt.Errorf("failed to encode evidence details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	query := `
		INSERT INTO verdicts (claim_id, status, explanation, confidence, key_evidence_points,
		                      sources, evidence_details, provider, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (claim_id) DO UPDATE SET
			status = EXCLUDED.status,
			explanation = EXCLUDED.explanation,
			confidence = EXCLUDED.confidence,
			key_evidence_points = EXCLUDED.key_evidence_points,
			sources = EXCLUDED.sources,
			evidence_details = EXCLUDED.evidence_details,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at
	`

	_, err = tx.ExecContext(ctx, query,
		verdict.ClaimID, string(verdict.Status), verdict.Explanation, verdict.Confidence,
		pq.Array(verdict.KeyEvidencePoints), pq.Array(verdict.Sources), evidenceJSON,
		verdict.Provider, verdict.Model, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save verdict for claim %s: %w", verdict.ClaimID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE claims SET verified_at = $1 WHERE id = $2", now, verdict.ClaimID); err != nil {
		return fmt.Errorf("failed to mark claim %s verified: %w", verdict.ClaimID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verdict transaction: %w", err)
	}

	return nil
}

// UpdateEmbedding stores the claim-text embedding used by hybrid search.
func (r *ClaimRepository) UpdateEmbedding(ctx context.Context, claimID string, embedding []float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE claims SET embedding = $1 WHERE id = $2",
		pq.Array(embedding), claimID)
	if err != nil {
		return fmt.Errorf("failed to update embedding for claim %s: %w", claimID, err)
	}
	return nil
}

// SearchVerifiedKeyword runs a full-text match over previously verified
// claims, ranked by ts_rank. Feeds the keyword half of hybrid search.
func (r *ClaimRepository) SearchVerifiedKeyword(ctx context.Context, query string, limit int) ([]models.VerifiedClaimMatch, error) {
	sqlQuery := `
		SELECT c.id, c.claim_text, v.status, v.explanation, c.verified_at,
		       ts_rank(to_tsvector('english', c.claim_text), plainto_tsquery('english', $1)) AS rank
		FROM claims c
		JOIN verdicts v ON v.claim_id = c.id
		WHERE to_tsvector('english', c.claim_text) @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var matches []models.VerifiedClaimMatch
	for rows.Next() {
		var m models.VerifiedClaimMatch
		var verifiedAt sql.NullTime
		var status string
		if err := rows.Scan(&m.ClaimID, &m.ClaimText, &status, &m.Explanation, &verifiedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan keyword match: %w", err)
		}
		m.Status = models.ParseVerdictStatus(status)
		if verifiedAt.Valid {
			m.VerifiedAt = verifiedAt.Time
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// ListVerifiedEmbeddings returns verified claims that carry an embedding,
// most recently verified first. Feeds the vector half of hybrid search.
func (r *ClaimRepository) ListVerifiedEmbeddings(ctx context.Context, limit int) ([]models.VerifiedClaimMatch, error) {
	sqlQuery := `
		SELECT c.id, c.claim_text, v.status, v.explanation, c.verified_at, c.embedding
		FROM claims c
		JOIN verdicts v ON v.claim_id = c.id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.verified_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("embedding listing failed: %w", err)
	}
	defer rows.Close()

	var matches []models.VerifiedClaimMatch
	for rows.Next() {
		var m models.VerifiedClaimMatch
		var verifiedAt sql.NullTime
		var status string
		var embedding []float64
		if err := rows.Scan(&m.ClaimID, &m.ClaimText, &status, &m.Explanation, &verifiedAt, pq.Array(&embedding)); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		m.Status = models.ParseVerdictStatus(status)
		m.Embedding = embedding
		if verifiedAt.Valid {
			m.VerifiedAt = verifiedAt.Time
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
