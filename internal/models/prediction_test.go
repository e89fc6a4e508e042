package models

import (
	"math"
	"testing"
)

func TestPredictionNormalize_ClampsAndOrdersInterval(t *testing.T) {
	p := Prediction{
		RawProbability:        1.4,
		CalibratedProbability: 0.72,
		Confidence:            -0.1,
		ProbabilityLow:        0.8, // above the point estimate
		ProbabilityHigh:       0.6, // below the point estimate
		KeyFactors: []KeyFactor{
			{Factor: "ai_analysis", Impact: 1.8, Confidence: 2.0},
			{Factor: "social_sentiment", Impact: -1.3, Confidence: 0.4},
		},
		RiskFactors: []RiskFactor{
			{Risk: "low data volume", Severity: SeverityMedium, Probability: 1.5},
		},
	}

	p.Normalize()

	if p.RawProbability != 1.0 {
		t.Errorf("raw probability should clamp to 1.0, got %v", p.RawProbability)
	}
	if p.Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %v", p.Confidence)
	}
	if !(p.ProbabilityLow <= p.CalibratedProbability && p.CalibratedProbability <= p.ProbabilityHigh) {
		t.Errorf("interval ordering violated: low=%v p=%v high=%v",
			p.ProbabilityLow, p.CalibratedProbability, p.ProbabilityHigh)
	}
	if p.KeyFactors[0].Impact != 1.0 || p.KeyFactors[1].Impact != -1.0 {
		t.Errorf("factor impacts should clamp to [-1,1], got %v and %v",
			p.KeyFactors[0].Impact, p.KeyFactors[1].Impact)
	}
	if p.RiskFactors[0].Probability != 1.0 {
		t.Errorf("risk probability should clamp to 1.0, got %v", p.RiskFactors[0].Probability)
	}
}

func TestPredictionProbabilityPairSumsToOne(t *testing.T) {
	for _, prob := range []float64{0.0, 0.25, 0.5, 0.72, 1.0} {
		p := Prediction{CalibratedProbability: prob}
		sum := p.YesProbability() + p.NoProbability()
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("yes+no should sum to 1 for p=%v, got %v", prob, sum)
		}
	}
}

func TestBrierQuality(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{0.05, "excellent"},
		{0.149, "excellent"},
		{0.17, "good"},
		{0.22, "acceptable"},
		{0.30, "poor"},
	}

	for _, tt := range tests {
		if got := BrierQuality(tt.score); got != tt.expected {
			t.Errorf("BrierQuality(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}
