package verdict

import (
	"context"
	"log/slog"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/models"
)

// FallbackExplanation is the explanation attached when every provider fails.
const FallbackExplanation = "automated verification unavailable"

// Classifier runs the ordered provider chain until one returns a valid
// verdict. When the whole chain fails, it emits the terminal fallback
// verdict (Unverified, confidence 0) instead of an error: a claim always
// ends up with exactly one verdict.
type Classifier struct {
	providers   []Provider
	callTimeout time.Duration
	metrics     *metrics.Collector
	logger      *slog.Logger
}

// NewClassifier builds a classifier over providers in fallback order.
func NewClassifier(providers []Provider, callTimeout time.Duration, collector *metrics.Collector, logger *slog.Logger) *Classifier {
	return &Classifier{
		providers:   providers,
		callTimeout: callTimeout,
		metrics:     collector,
		logger:      logger,
	}
}

// Classify produces the verdict for a claim given its evidence bundle.
func (c *Classifier) Classify(ctx context.Context, claimID, claimText string, evidence []models.EvidenceItem) models.Verdict {
	allowedSources := make(map[string]struct{}, len(evidence))
	for _, item := range evidence {
		allowedSources[item.URL] = struct{}{}
	}

	for i, provider := range c.providers {
		if i > 0 {
			c.metrics.RecordProviderFallback(provider.Name())
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		raw, err := provider.Classify(callCtx, claimText, evidence)
		cancel()

		if err != nil {
			c.logger.Warn("verdict provider failed",
				"claim_id", claimID,
				"provider", provider.Name(),
				"model", provider.Model(),
				"error", err)
			continue
		}

		verdict := c.buildVerdict(claimID, provider, raw, evidence, allowedSources)
		c.logger.Info("claim classified",
			"claim_id", claimID,
			"provider", provider.Name(),
			"status", verdict.Status,
			"confidence", verdict.Confidence)
		return verdict
	}

	c.logger.Error("all verdict providers failed, emitting fallback verdict", "claim_id", claimID)
	return FallbackVerdict(claimID)
}

// buildVerdict validates a raw provider response into a persistable verdict:
// the status collapses onto the four-value enum, confidence is clamped, and
// sources not present in the evidence bundle are discarded.
func (c *Classifier) buildVerdict(claimID string, provider Provider, raw *rawVerdict, evidence []models.EvidenceItem, allowed map[string]struct{}) models.Verdict {
	sources := make([]string, 0, len(raw.Sources))
	for _, src := range raw.Sources {
		if _, ok := allowed[src]; ok {
			sources = append(sources, src)
		} else {
			c.logger.Debug("dropping source not present in evidence", "claim_id", claimID, "source", src)
		}
	}

	verdict := models.Verdict{
		ClaimID:           claimID,
		Status:            models.ParseVerdictStatus(raw.Status),
		Explanation:       raw.Explanation,
		Confidence:        raw.Confidence,
		KeyEvidencePoints: raw.KeyEvidencePoints,
		Sources:           sources,
		EvidenceDetails:   evidence,
		Provider:          provider.Name(),
		Model:             provider.Model(),
		CreatedAt:         time.Now().UTC(),
	}
	verdict.Normalize()
	return verdict
}

// FallbackVerdict is the terminal verdict used when no provider could
// classify the claim. It is persisted like any other verdict so the claim
// does not stay permanently pending.
func FallbackVerdict(claimID string) models.Verdict {
	return models.Verdict{
		ClaimID:     claimID,
		Status:      models.StatusUnverified,
		Explanation: FallbackExplanation,
		Confidence:  0,
		Provider:    "fallback",
		CreatedAt:   time.Now().UTC(),
	}
}
