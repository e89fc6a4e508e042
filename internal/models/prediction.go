package models

import "time"

// RiskSeverity tags how damaging a risk factor would be if it materialized.
type RiskSeverity string

const (
	SeverityLow      RiskSeverity = "low"
	SeverityMedium   RiskSeverity = "medium"
	SeverityHigh     RiskSeverity = "high"
	SeverityCritical RiskSeverity = "critical"
)

// KeyFactor is one signal's contribution to a prediction, carried for
// explainability. Impact is the signed probability shift the signal produced.
type KeyFactor struct {
	Factor     string  `json:"factor"`
	Impact     float64 `json:"impact"`     // [-1,1]
	Confidence float64 `json:"confidence"` // [0,1]
	Source     string  `json:"source"`     // "ai_analysis", "social_sentiment", "news_signal", "crowd_votes"
	Evidence   string  `json:"evidence,omitempty"`
}

// RiskFactor is a qualitative caveat attached to a prediction.
type RiskFactor struct {
	Risk               string       `json:"risk"`
	Severity           RiskSeverity `json:"severity"`
	Probability        float64      `json:"probability"` // [0,1], chance of materializing
	ImpactOnPrediction string       `json:"impact_on_prediction"`
}

// Prediction is the engine's current calibrated probability estimate for a
// market. One current prediction per market; superseded predictions are kept
// in an append-only history for calibration and trend charts.
type Prediction struct {
	ID                    string       `json:"id"`
	MarketID              string       `json:"market_id"`
	AgentID               string       `json:"agent_id"` // forecasting agent/version that produced it
	RawProbability        float64      `json:"raw_probability"`        // [0,1], AI base estimate
	CalibratedProbability float64      `json:"calibrated_probability"` // [0,1]
	Confidence            float64      `json:"confidence"`             // [0,1]
	ProbabilityLow        float64      `json:"probability_low"`
	ProbabilityHigh       float64      `json:"probability_high"`
	KeyFactors            []KeyFactor  `json:"key_factors"`
	RiskFactors           []RiskFactor `json:"risk_factors"`
	DataFreshnessHours    float64      `json:"data_freshness_hours"`
	AnalysisTier          string       `json:"analysis_tier"` // "full", "partial", "minimal"
	CrowdYesPercentage    *float64     `json:"crowd_yes_percentage,omitempty"` // shown alongside, never merged in
	CreatedAt             time.Time    `json:"created_at"`
}

// YesProbability and NoProbability expose the persisted market probability
// pair. They always sum to 1.
func (p *Prediction) YesProbability() float64 { return p.CalibratedProbability }
func (p *Prediction) NoProbability() float64  { return 1 - p.CalibratedProbability }

// Normalize clamps every scalar to its documented range and repairs the
// interval ordering so that low <= calibrated <= high always holds.
func (p *Prediction) Normalize() {
	p.RawProbability = Clamp01(p.RawProbability)
	p.CalibratedProbability = Clamp01(p.CalibratedProbability)
	p.Confidence = Clamp01(p.Confidence)
	p.ProbabilityLow = Clamp01(p.ProbabilityLow)
	p.ProbabilityHigh = Clamp01(p.ProbabilityHigh)

	if p.ProbabilityLow > p.CalibratedProbability {
		p.ProbabilityLow = p.CalibratedProbability
	}
	if p.ProbabilityHigh < p.CalibratedProbability {
		p.ProbabilityHigh = p.CalibratedProbability
	}

	for i := range p.KeyFactors {
		f := &p.KeyFactors[i]
		if f.Impact > 1 {
			f.Impact = 1
		}
		if f.Impact < -1 {
			f.Impact = -1
		}
		f.Confidence = Clamp01(f.Confidence)
	}
	for i := range p.RiskFactors {
		p.RiskFactors[i].Probability = Clamp01(p.RiskFactors[i].Probability)
	}
}
