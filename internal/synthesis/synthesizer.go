package synthesis

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

// Signal blend weights. Sentiment and news split 60/40 when both are
// present; when one is absent the remaining weight renormalizes to 1 so a
// lone signal speaks at full strength rather than being silently halved.
const (
	sentimentWeight = 0.6
	newsWeight      = 0.4

	// maxSignalShift bounds how far the combined sentiment/news blend can
	// move the AI anchor probability.
	maxSignalShift = 0.2

	// Interval spread: base width on each side of the point estimate,
	// widened by up to maxExtraSpread as confidence drops.
	baseSpread     = 0.15
	maxExtraSpread = 0.20

	lowVolumeThreshold = 10
	staleSignalHours   = 24.0
)

// Input carries everything Synthesize consumes. AsOf is passed explicitly
// so that re-running with identical inputs is bit-identical.
type Input struct {
	MarketID         string
	AgentID          string
	AIRawProbability float64
	Sentiment        *models.SentimentSignal
	News             *models.NewsSignal
	Votes            *models.VoteAggregation
	AsOf             time.Time
}

// Synthesizer combines independently computed market signals into one
// calibrated probability with an uncertainty interval and ranked factors.
// Pure: no I/O, no randomness.
type Synthesizer struct {
	logger *slog.Logger
}

func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// Synthesize produces the prediction for a market. The AI raw probability
// anchors the estimate; sentiment and news shift it within maxSignalShift;
// crowd votes are reported alongside for comparison, never merged into the
// calibrated probability.
func (s *Synthesizer) Synthesize(in Input) models.Prediction {
	anchor := models.Clamp01(in.AIRawProbability)

	shift, factors := s.signalShift(anchor, in)
	calibrated := models.Clamp01(anchor + shift)

	signalCount, freshnessHours := signalStats(in)
	confidence := confidenceFrom(signalCount, freshnessHours)

	spread := baseSpread + (1-confidence)*maxExtraSpread
	risks := s.riskFactors(in, signalCount, freshnessHours)

	pred := models.Prediction{
		MarketID:              in.MarketID,
		AgentID:               in.AgentID,
		RawProbability:        anchor,
		CalibratedProbability: calibrated,
		Confidence:            confidence,
		ProbabilityLow:        calibrated - spread,
		ProbabilityHigh:       calibrated + spread,
		KeyFactors:            factors,
		RiskFactors:           risks,
		DataFreshnessHours:    freshnessHours,
		AnalysisTier:          tierFor(signalCount),
		CreatedAt:             in.AsOf,
	}

	if in.Votes != nil && in.Votes.TotalVotes > 0 {
		crowdYes := in.Votes.YesPercentage
		pred.CrowdYesPercentage = &crowdYes
	}

	pred.Normalize()

	s.logger.Debug("prediction synthesized",
		"market_id", in.MarketID,
		"agent_id", in.AgentID,
		"calibrated", pred.CalibratedProbability,
		"confidence", pred.Confidence,
		"tier", pred.AnalysisTier)

	return pred
}

// signalShift computes the bounded probability shift contributed by the
// sentiment/news blend, along with the explainability factors for every
// signal including the AI anchor and the unmerged crowd vote.
func (s *Synthesizer) signalShift(anchor float64, in Input) (float64, []models.KeyFactor) {
	factors := []models.KeyFactor{
		{
			Factor:     "AI evidence analysis",
			Impact:     anchor - 0.5,
			Confidence: 0.7,
			Source:     "ai_analysis",
		},
	}

	wSentiment, wNews := 0.0, 0.0
	if in.Sentiment != nil {
		wSentiment = sentimentWeight
	}
	if in.News != nil {
		wNews = newsWeight
	}
	if total := wSentiment + wNews; total > 0 {
		wSentiment /= total
		wNews /= total
	}

	var shift float64
	if in.Sentiment != nil {
		contribution := wSentiment * in.Sentiment.Momentum * maxSignalShift
		shift += contribution
		factors = append(factors, models.KeyFactor{
			Factor:     "social sentiment momentum",
			Impact:     contribution,
			Confidence: volumeConfidence(in.Sentiment.Volume),
			Source:     "social_sentiment",
			Evidence:   fmt.Sprintf("momentum %.2f over %d posts", in.Sentiment.Momentum, in.Sentiment.Volume),
		})
	}
	if in.News != nil {
		contribution := wNews * in.News.Lean * in.News.AvgCredibility * maxSignalShift
		shift += contribution
		factors = append(factors, models.KeyFactor{
			Factor:     "credibility-weighted news lean",
			Impact:     contribution,
			Confidence: models.Clamp01(in.News.AvgCredibility),
			Source:     "news_signal",
			Evidence:   fmt.Sprintf("lean %.2f across %d articles, avg credibility %.2f", in.News.Lean, in.News.ArticleCount, in.News.AvgCredibility),
		})
	}
	if in.Votes != nil && in.Votes.TotalVotes > 0 {
		factors = append(factors, models.KeyFactor{
			Factor:     "crowd vote (reported, not merged)",
			Impact:     0,
			Confidence: models.Clamp01(in.Votes.AvgConfidence),
			Source:     "crowd_votes",
			Evidence:   fmt.Sprintf("%.0f%% yes across %d votes", in.Votes.YesPercentage, in.Votes.TotalVotes),
		})
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return math.Abs(factors[i].Impact) > math.Abs(factors[j].Impact)
	})

	return shift, factors
}

// signalStats counts present optional signals and computes the age in hours
// of the freshest one relative to AsOf. Zero signals yields zero freshness
// hours; the confidence floor handles that case.
func signalStats(in Input) (int, float64) {
	count := 0
	var newest time.Time

	note := func(t time.Time) {
		count++
		if t.After(newest) {
			newest = t
		}
	}

	if in.Sentiment != nil {
		note(in.Sentiment.ComputedAt)
	}
	if in.News != nil {
		note(in.News.ComputedAt)
	}
	if in.Votes != nil && in.Votes.TotalVotes > 0 {
		// Vote aggregations are recomputed on demand, so they count as
		// current.
		note(in.AsOf)
	}

	if count == 0 {
		return 0, 0
	}
	hours := in.AsOf.Sub(newest).Hours()
	if hours < 0 {
		hours = 0
	}
	return count, hours
}

// confidenceFrom maps signal count and data freshness onto [0,1]: each
// independent signal adds confidence, stale data subtracts it.
func confidenceFrom(signalCount int, freshnessHours float64) float64 {
	confidence := 0.3 + 0.15*float64(signalCount)

	stalenessPenalty := math.Min(freshnessHours/48.0, 1.0) * 0.25
	confidence -= stalenessPenalty

	return models.Clamp01(confidence)
}

func volumeConfidence(volume int) float64 {
	return models.Clamp01(float64(volume) / 100.0)
}

func tierFor(signalCount int) string {
	switch {
	case signalCount >= 3:
		return "full"
	case signalCount >= 1:
		return "partial"
	default:
		return "minimal"
	}
}

// riskFactors derives the qualitative caveats for a prediction, sorted by
// probability of materializing.
func (s *Synthesizer) riskFactors(in Input, signalCount int, freshnessHours float64) []models.RiskFactor {
	var risks []models.RiskFactor

	if signalCount == 0 {
		risks = append(risks, models.RiskFactor{
			Risk:               "low data volume",
			Severity:           models.SeverityHigh,
			Probability:        0.9,
			ImpactOnPrediction: "estimate rests on AI analysis alone; interval is at maximum width",
		})
	} else {
		lowVolume := in.Sentiment != nil && in.Sentiment.Volume < lowVolumeThreshold
		lowVotes := in.Votes != nil && in.Votes.TotalVotes > 0 && in.Votes.TotalVotes < lowVolumeThreshold
		if lowVolume || lowVotes {
			risks = append(risks, models.RiskFactor{
				Risk:               "low data volume",
				Severity:           models.SeverityMedium,
				Probability:        0.6,
				ImpactOnPrediction: "sparse signal sample may not represent the broader population",
			})
		}
	}

	if in.Sentiment != nil && in.News != nil {
		if in.Sentiment.Momentum*in.News.Lean < 0 &&
			math.Abs(in.Sentiment.Momentum) > 0.2 && math.Abs(in.News.Lean) > 0.2 {
			risks = append(risks, models.RiskFactor{
				Risk:               "conflicting signals",
				Severity:           models.SeverityMedium,
				Probability:        0.5,
				ImpactOnPrediction: "sentiment and news point in opposite directions; blend may understate either",
			})
		}
	}

	if signalCount > 0 && freshnessHours > staleSignalHours {
		risks = append(risks, models.RiskFactor{
			Risk:               "stale data",
			Severity:           models.SeverityLow,
			Probability:        models.Clamp01(freshnessHours / (4 * staleSignalHours)),
			ImpactOnPrediction: "signals predate recent developments the estimate cannot reflect",
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Probability > risks[j].Probability
	})
	return risks
}
