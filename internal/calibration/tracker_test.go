package calibration

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

func resolvedSet(pairs ...struct {
	p       float64
	outcome bool
}) []models.ResolvedPrediction {
	out := make([]models.ResolvedPrediction, len(pairs))
	for i, pr := range pairs {
		out[i] = models.ResolvedPrediction{
			PredictionID:          "p",
			MarketID:              "m",
			AgentID:               "agent",
			CalibratedProbability: pr.p,
			Outcome:               pr.outcome,
			ResolvedAt:            time.Now(),
		}
	}
	return out
}

type pair = struct {
	p       float64
	outcome bool
}

func TestBrierScoreKnownValue(t *testing.T) {
	resolved := resolvedSet(
		pair{0.9, true},
		pair{0.9, false},
		pair{0.1, false},
	)
	// (0.01 + 0.81 + 0.01) / 3
	want := 0.83 / 3
	got := BrierScore(resolved)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("BrierScore = %v, want %v", got, want)
	}
}

func TestBrierScoreEmptyInput(t *testing.T) {
	if got := BrierScore(nil); got != 0 {
		t.Errorf("BrierScore(nil) = %v, want 0", got)
	}
}

func TestBucketizeDecileExample(t *testing.T) {
	// 10 predictions in [0.6, 0.7), 6 of which resolved YES.
	var resolved []models.ResolvedPrediction
	for i := 0; i < 10; i++ {
		resolved = append(resolved, models.ResolvedPrediction{
			CalibratedProbability: 0.6 + float64(i)*0.01, // 0.60 .. 0.69
			Outcome:               i < 6,
		})
	}

	buckets := bucketize(resolved)
	if len(buckets) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(buckets))
	}

	b := buckets[6]
	if b.Range != "60-70%" {
		t.Errorf("unexpected range label: %s", b.Range)
	}
	if b.Count != 10 {
		t.Errorf("expected count 10, got %d", b.Count)
	}
	if math.Abs(b.PredictedAvg-0.645) > 1e-9 {
		t.Errorf("PredictedAvg = %v, want 0.645", b.PredictedAvg)
	}
	if b.ActualFrequency != 0.6 {
		t.Errorf("ActualFrequency = %v, want 0.6", b.ActualFrequency)
	}
	if math.Abs(b.CalibrationError-0.045) > 1e-9 {
		t.Errorf("CalibrationError = %v, want 0.045", b.CalibrationError)
	}
}

func TestBucketizeRetainsEmptyBuckets(t *testing.T) {
	buckets := bucketize(resolvedSet(pair{0.95, true}))
	if len(buckets) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(buckets))
	}
	for i, b := range buckets {
		if i == 9 {
			if b.Count != 1 {
				t.Errorf("bucket 9 count = %d, want 1", b.Count)
			}
			continue
		}
		if b.Count != 0 {
			t.Errorf("bucket %d count = %d, want 0", i, b.Count)
		}
		if b.CalibrationError != 0 {
			t.Errorf("empty bucket %d has nonzero error %v", i, b.CalibrationError)
		}
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := []struct {
		p    float64
		want int
	}{
		{0, 0},
		{0.09, 0},
		{0.1, 1},
		{0.65, 6},
		{0.99, 9},
		{1.0, 9},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.p); got != tt.want {
			t.Errorf("bucketIndex(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestMeanBucketErrorIgnoresEmptyBuckets(t *testing.T) {
	resolved := append(
		resolvedSet(pair{0.65, true}, pair{0.65, false}), // bucket 6: avg 0.65, freq 0.5, err 0.15
		resolvedSet(pair{0.25, false})...,                // bucket 2: avg 0.25, freq 0, err 0.25
	)
	buckets := bucketize(resolved)
	got := meanBucketError(buckets)
	want := (0.15 + 0.25) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("meanBucketError = %v, want %v", got, want)
	}
}

func TestOverconfidenceBias(t *testing.T) {
	// Confident YES calls that mostly failed: strongly positive bias.
	wrong := bucketize(resolvedSet(pair{0.9, false}, pair{0.95, false}, pair{0.9, true}))
	if got := overconfidenceBias(wrong); got <= 0 {
		t.Errorf("expected positive bias for failed extreme calls, got %v", got)
	}

	// Confident calls that all came true: negative (underconfident) bias.
	right := bucketize(resolvedSet(pair{0.9, true}, pair{0.1, false}))
	if got := overconfidenceBias(right); got >= 0 {
		t.Errorf("expected negative bias for correct extreme calls, got %v", got)
	}

	// Mid-range predictions contribute nothing.
	mid := bucketize(resolvedSet(pair{0.5, true}, pair{0.6, false}))
	if got := overconfidenceBias(mid); got != 0 {
		t.Errorf("expected zero bias with no tail predictions, got %v", got)
	}
}

func TestReportAssemblesAllMetrics(t *testing.T) {
	tracker := NewTracker(slog.New(slog.DiscardHandler))
	resolved := resolvedSet(pair{0.9, true}, pair{0.9, false}, pair{0.1, false})
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	report := tracker.Report("poligraph-v1", 90, resolved, 12, now)

	if report.AgentID != "poligraph-v1" {
		t.Errorf("unexpected agent id: %s", report.AgentID)
	}
	if report.NumResolved != 3 || report.NumPredictions != 12 {
		t.Errorf("counts = %d resolved / %d total, want 3 / 12", report.NumResolved, report.NumPredictions)
	}
	if report.TimePeriodDays != 90 {
		t.Errorf("window = %d, want 90", report.TimePeriodDays)
	}
	if len(report.Buckets) != 10 {
		t.Errorf("expected all 10 buckets, got %d", len(report.Buckets))
	}
	if math.Abs(report.BrierScore-0.83/3) > 1e-9 {
		t.Errorf("BrierScore = %v", report.BrierScore)
	}
	if report.CreatedAt != now {
		t.Errorf("CreatedAt = %v, want %v", report.CreatedAt, now)
	}
}

func TestBrierQualityBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.10, "excellent"},
		{0.17, "good"},
		{0.22, "acceptable"},
		{0.30, "poor"},
	}
	for _, tt := range tests {
		if got := models.BrierQuality(tt.score); got != tt.want {
			t.Errorf("BrierQuality(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
