package models

import "time"

// CalibrationBucket groups resolved predictions whose calibrated probability
// fell in one fixed range, comparing what the agent predicted against what
// actually happened.
type CalibrationBucket struct {
	Range            string  `json:"range"`         // e.g. "60-70%"
	PredictedAvg     float64 `json:"predicted_avg"` // mean calibrated probability in bucket
	ActualFrequency  float64 `json:"actual_frequency"`
	Count            int     `json:"count"`
	CalibrationError float64 `json:"calibration_error"` // |predicted_avg - actual_frequency|
}

// CalibrationReport scores one forecasting agent's historical accuracy over a
// time window. Each new report for the same agent/window supersedes the
// previous one rather than merging with it.
type CalibrationReport struct {
	ID                 string              `json:"id"`
	AgentID            string              `json:"agent_id"`
	BrierScore         float64             `json:"brier_score"`
	CalibrationError   float64             `json:"calibration_error"` // mean absolute bucket error
	NumPredictions     int                 `json:"num_predictions"`
	NumResolved        int                 `json:"num_resolved"`
	OverconfidenceBias float64             `json:"overconfidence_bias"`
	TimePeriodDays     int                 `json:"time_period_days"`
	Buckets            []CalibrationBucket `json:"buckets"`
	CreatedAt          time.Time           `json:"created_at"`
}

// BrierQuality maps a Brier score onto the documented quality bands.
func BrierQuality(score float64) string {
	switch {
	case score < 0.15:
		return "excellent"
	case score < 0.20:
		return "good"
	case score < 0.25:
		return "acceptable"
	default:
		return "poor"
	}
}

// ResolvedPrediction pairs a historical prediction with its market's actual
// outcome. Input to calibration scoring.
type ResolvedPrediction struct {
	PredictionID          string    `json:"prediction_id"`
	MarketID              string    `json:"market_id"`
	AgentID               string    `json:"agent_id"`
	CalibratedProbability float64   `json:"calibrated_probability"`
	Outcome               bool      `json:"outcome"` // true = resolved YES
	ResolvedAt            time.Time `json:"resolved_at"`
}
