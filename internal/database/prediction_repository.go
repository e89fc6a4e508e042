package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/google/uuid"
)

// PredictionRepository handles prediction storage with an explicit
// current/history split: one authoritative current row per market, plus an
// append-only history consumed by calibration and trend charts.
type PredictionRepository struct {
	db *sql.DB
}

// NewPredictionRepository creates a new prediction repository.
func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// SaveCurrent replaces the market's current prediction and appends the same
// row to history, in one transaction.
func (r *PredictionRepository) SaveCurrent(ctx context.Context, p models.Prediction) (*models.Prediction, error) {
	p.Normalize()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	keyFactorsJSON, err := json.Marshal(p.KeyFactors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key factors: %w", err)
	}
	riskFactorsJSON, err := json.Marshal(p.RiskFactors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode risk factors: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	currentQuery := `
		INSERT INTO predictions_current (
			market_id, prediction_id, agent_id, raw_probability, calibrated_probability,
			confidence, probability_low, probability_high, key_factors, risk_factors,
			data_freshness_hours, analysis_tier, crowd_yes_percentage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (market_id) DO UPDATE SET
			prediction_id = EXCLUDED.prediction_id,
			agent_id = EXCLUDED.agent_id,
			raw_probability = EXCLUDED.raw_probability,
			calibrated_probability = EXCLUDED.calibrated_probability,
			confidence = EXCLUDED.confidence,
			probability_low = EXCLUDED.probability_low,
			probability_high = EXCLUDED.probability_high,
			key_factors = EXCLUDED.key_factors,
			risk_factors = EXCLUDED.risk_factors,
			data_freshness_hours = EXCLUDED.data_freshness_hours,
			analysis_tier = EXCLUDED.analysis_tier,
			crowd_yes_percentage = EXCLUDED.crowd_yes_percentage,
			created_at = EXCLUDED.created_at
	`

	args := []interface{}{
		p.MarketID, p.ID, p.AgentID, p.RawProbability, p.CalibratedProbability,
		p.Confidence, p.ProbabilityLow, p.ProbabilityHigh, keyFactorsJSON, riskFactorsJSON,
		p.DataFreshnessHours, p.AnalysisTier, p.CrowdYesPercentage, p.CreatedAt,
	}

	if _, err := tx.ExecContext(ctx, currentQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert current prediction for market %s: %w", p.MarketID, err)
	}

	historyQuery := `
		INSERT INTO prediction_history (
			id, market_id, agent_id, raw_probability, calibrated_probability,
			confidence, probability_low, probability_high, key_factors, risk_factors,
			data_freshness_hours, analysis_tier, crowd_yes_percentage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	historyArgs := []interface{}{
		p.ID, p.MarketID, p.AgentID, p.RawProbability, p.CalibratedProbability,
		p.Confidence, p.ProbabilityLow, p.ProbabilityHigh, keyFactorsJSON, riskFactorsJSON,
		p.DataFreshnessHours, p.AnalysisTier, p.CrowdYesPercentage, p.CreatedAt,
	}

	if _, err := tx.ExecContext(ctx, historyQuery, historyArgs...); err != nil {
		return nil, fmt.Errorf("failed to append prediction history for market %s: %w", p.MarketID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prediction transaction: %w", err)
	}

	return &p, nil
}

// GetCurrent fetches the authoritative current prediction for a market.
// Returns nil when the market has never been forecast.
func (r *PredictionRepository) GetCurrent(ctx context.Context, marketID string) (*models.Prediction, error) {
	query := `
		SELECT prediction_id, market_id, agent_id, raw_probability, calibrated_probability,
		       confidence, probability_low, probability_high, key_factors, risk_factors,
		       data_freshness_hours, analysis_tier, crowd_yes_percentage, created_at
		FROM predictions_current
		WHERE market_id = $1
	`

	var p models.Prediction
	var keyFactorsJSON, riskFactorsJSON []byte
	var crowdYes sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, marketID).Scan(
		&p.ID, &p.MarketID, &p.AgentID, &p.RawProbability, &p.CalibratedProbability,
		&p.Confidence, &p.ProbabilityLow, &p.ProbabilityHigh, &keyFactorsJSON, &riskFactorsJSON,
		&p.DataFreshnessHours, &p.AnalysisTier, &crowdYes, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current prediction for market %s: %w", marketID, err)
	}

	if len(keyFactorsJSON) > 0 {
		if err := json.Unmarshal(keyFactorsJSON, &p.KeyFactors); err != nil {
			return nil, fmt.Errorf("failed to decode key factors: %w", err)
		}
	}
	if len(riskFactorsJSON) > 0 {
		if err := json.Unmarshal(riskFactorsJSON, &p.RiskFactors); err != nil {
			return nil, fmt.Errorf("failed to decode risk factors: %w", err)
		}
	}
	if crowdYes.Valid {
		v := crowdYes.Float64
		p.CrowdYesPercentage = &v
	}

	return &p, nil
}

// GetHistory returns the prediction trail for a market, oldest first.
func (r *PredictionRepository) GetHistory(ctx context.Context, marketID string, limit int) ([]models.Prediction, error) {
	query := `
		SELECT id, market_id, agent_id, raw_probability, calibrated_probability,
		       confidence, probability_low, probability_high,
		       data_freshness_hours, analysis_tier, created_at
		FROM prediction_history
		WHERE market_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction history for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var history []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(
			&p.ID, &p.MarketID, &p.AgentID, &p.RawProbability, &p.CalibratedProbability,
			&p.Confidence, &p.ProbabilityLow, &p.ProbabilityHigh,
			&p.DataFreshnessHours, &p.AnalysisTier, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction history row: %w", err)
		}
		history = append(history, p)
	}

	return history, rows.Err()
}

// GetResolvedPredictions returns, for one agent, the final pre-resolution
// prediction of every market resolved inside the window. Input to the
// calibration tracker.
func (r *PredictionRepository) GetResolvedPredictions(ctx context.Context, agentID string, since time.Time) ([]models.ResolvedPrediction, error) {
	// The last history row before resolution is the prediction that gets
	// scored; later rows for the same market would postdate the outcome.
	query := `
		SELECT DISTINCT ON (h.market_id)
		       h.id, h.market_id, h.agent_id, h.calibrated_probability, m.outcome, m.resolved_at
		FROM prediction_history h
		JOIN markets m ON m.id = h.market_id
		WHERE h.agent_id = $1
		  AND m.status = 'resolved'
		  AND m.outcome IS NOT NULL
		  AND m.resolved_at >= $2
		  AND h.created_at <= m.resolved_at
		ORDER BY h.market_id, h.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, agentID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved predictions for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	var resolved []models.ResolvedPrediction
	for rows.Next() {
		var rp models.ResolvedPrediction
		if err := rows.Scan(&rp.PredictionID, &rp.MarketID, &rp.AgentID,
			&rp.CalibratedProbability, &rp.Outcome, &rp.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolved prediction: %w", err)
		}
		resolved = append(resolved, rp)
	}

	return resolved, rows.Err()
}

// CountPredictions returns the total history rows for an agent in the window,
// resolved or not. Reported as num_predictions on calibration reports.
func (r *PredictionRepository) CountPredictions(ctx context.Context, agentID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM prediction_history
		WHERE agent_id = $1 AND created_at >= $2
	`, agentID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count predictions for agent %s: %w", agentID, err)
	}
	return count, nil
}
