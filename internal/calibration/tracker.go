package calibration

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

const numBuckets = 10

// Tail bucket boundaries for the overconfidence bias: predictions below
// lowTail or at/above highTail count as "extreme".
const (
	lowTail  = 0.2
	highTail = 0.8
)

// Tracker scores a forecasting agent's historical accuracy against actual
// market outcomes. Pure computation over resolved predictions; reading
// predictions and persisting reports are the caller's concern.
type Tracker struct {
	logger *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Report builds a calibration report for an agent over a window. resolved is
// every last-before-resolution prediction for the agent whose market
// resolved inside the window; numPredictions is the agent's total prediction
// count, resolved or not.
func (t *Tracker) Report(agentID string, windowDays int, resolved []models.ResolvedPrediction, numPredictions int, now time.Time) models.CalibrationReport {
	buckets := bucketize(resolved)

	report := models.CalibrationReport{
		AgentID:            agentID,
		BrierScore:         BrierScore(resolved),
		CalibrationError:   meanBucketError(buckets),
		NumPredictions:     numPredictions,
		NumResolved:        len(resolved),
		OverconfidenceBias: overconfidenceBias(buckets),
		TimePeriodDays:     windowDays,
		Buckets:            buckets,
		CreatedAt:          now,
	}

	t.logger.Info("calibration report computed",
		"agent_id", agentID,
		"window_days", windowDays,
		"num_resolved", report.NumResolved,
		"brier_score", report.BrierScore,
		"brier_quality", models.BrierQuality(report.BrierScore),
		"overconfidence_bias", report.OverconfidenceBias)

	return report
}

// BrierScore is the mean squared error between calibrated probabilities and
// binary outcomes. Zero resolved predictions yields 0.
func BrierScore(resolved []models.ResolvedPrediction) float64 {
	if len(resolved) == 0 {
		return 0
	}
	var sum float64
	for _, r := range resolved {
		outcome := 0.0
		if r.Outcome {
			outcome = 1.0
		}
		diff := r.CalibratedProbability - outcome
		sum += diff * diff
	}
	return sum / float64(len(resolved))
}

// bucketize partitions resolved predictions into ten fixed decile buckets.
// Every bucket appears in the output, empty ones with count 0, so the
// calibration curve renders with a continuous axis.
func bucketize(resolved []models.ResolvedPrediction) []models.CalibrationBucket {
	type acc struct {
		sumPredicted float64
		yes          int
		count        int
	}
	accs := make([]acc, numBuckets)

	for _, r := range resolved {
		idx := bucketIndex(r.CalibratedProbability)
		accs[idx].sumPredicted += r.CalibratedProbability
		accs[idx].count++
		if r.Outcome {
			accs[idx].yes++
		}
	}

	buckets := make([]models.CalibrationBucket, numBuckets)
	for i, a := range accs {
		b := models.CalibrationBucket{
			Range: fmt.Sprintf("%d-%d%%", i*10, (i+1)*10),
			Count: a.count,
		}
		if a.count > 0 {
			b.PredictedAvg = a.sumPredicted / float64(a.count)
			b.ActualFrequency = float64(a.yes) / float64(a.count)
			b.CalibrationError = math.Abs(b.PredictedAvg - b.ActualFrequency)
		}
		buckets[i] = b
	}
	return buckets
}

// bucketIndex maps a probability onto its decile; 1.0 lands in the top
// bucket rather than an eleventh.
func bucketIndex(p float64) int {
	idx := int(p * numBuckets)
	if idx < 0 {
		idx = 0
	}
	if idx >= numBuckets {
		idx = numBuckets - 1
	}
	return idx
}

// meanBucketError averages |predicted_avg - actual_frequency| over non-empty
// buckets only. Empty buckets stay in the report but would distort the mean.
func meanBucketError(buckets []models.CalibrationBucket) float64 {
	var sum float64
	var n int
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		sum += b.CalibrationError
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// overconfidenceBias compares predicted extremity against observed outcomes
// in the distribution's tail buckets. For high-tail buckets, predicting
// above the observed frequency is overconfident; for low-tail buckets,
// predicting below it is. Positive means extreme calls were wrong more
// often than their stated probability implied.
func overconfidenceBias(buckets []models.CalibrationBucket) float64 {
	var sum float64
	var n int
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		switch {
		case b.PredictedAvg > highTail:
			sum += b.PredictedAvg - b.ActualFrequency
			n++
		case b.PredictedAvg < lowTail:
			sum += b.ActualFrequency - b.PredictedAvg
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
