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

// CalibrationReportRepository persists calibration reports. Each new report
// for the same agent/window supersedes the previous one.
type CalibrationReportRepository struct {
	db *sql.DB
}

// NewCalibrationReportRepository creates a new repository.
func NewCalibrationReportRepository(db *sql.DB) *CalibrationReportRepository {
	return &CalibrationReportRepository{db: db}
}

// Save replaces the stored report for the agent/window pair.
func (r *CalibrationReportRepository) Save(ctx context.Context, report models.CalibrationReport) (*models.CalibrationReport, error) {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	bucketsJSON, err := json.Marshal(report.Buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calibration buckets: %w", err)
	}

	query := `
		INSERT INTO calibration_reports (
			id, agent_id, brier_score, calibration_error, num_predictions,
			num_resolved, overconfidence_bias, time_period_days, buckets, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (agent_id, time_period_days) DO UPDATE SET
			id = EXCLUDED.id,
			brier_score = EXCLUDED.brier_score,
			calibration_error = EXCLUDED.calibration_error,
			num_predictions = EXCLUDED.num_predictions,
			num_resolved = EXCLUDED.num_resolved,
			overconfidence_bias = EXCLUDED.overconfidence_bias,
			buckets = EXCLUDED.buckets,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ID, report.AgentID, report.BrierScore, report.CalibrationError,
		report.NumPredictions, report.NumResolved, report.OverconfidenceBias,
		report.TimePeriodDays, bucketsJSON, report.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save calibration report for agent %s: %w", report.AgentID, err)
	}

	return &report, nil
}

// Get fetches the stored report for an agent/window pair, or nil.
func (r *CalibrationReportRepository) Get(ctx context.Context, agentID string, windowDays int) (*models.CalibrationReport, error) {
	query := `
		SELECT id, agent_id, brier_score, calibration_error, num_predictions,
		       num_resolved, overconfidence_bias, time_period_days, buckets, created_at
		FROM calibration_reports
		WHERE agent_id = $1 AND time_period_days = $2
	`

	var report models.CalibrationReport
	var bucketsJSON []byte

	err := r.db.QueryRowContext(ctx, query, agentID, windowDays).Scan(
		&report.ID, &report.AgentID, &report.BrierScore, &report.CalibrationError,
		&report.NumPredictions, &report.NumResolved, &report.OverconfidenceBias,
		&report.TimePeriodDays, &bucketsJSON, &report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration report for agent %s: %w", agentID, err)
	}

	if len(bucketsJSON) > 0 {
		if err := json.Unmarshal(bucketsJSON, &report.Buckets); err != nil {
			return nil, fmt.Errorf("failed to decode calibration buckets: %w", err)
		}
	}

	return &report, nil
}

// ListAgents returns the distinct agent IDs with prediction history, used by
// the scheduler to recompute every agent's report.
func (r *CalibrationReportRepository) ListAgents(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT agent_id FROM prediction_history")
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		agents = append(agents, id)
	}

	return agents, rows.Err()
}
