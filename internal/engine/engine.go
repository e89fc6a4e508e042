package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/calibration"
	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/POLIGRAPH/poligraph/internal/synthesis"
)

// ClaimStore is the persistence surface claim verification needs.
type ClaimStore interface {
	GetClaim(ctx context.Context, id string) (*models.Claim, error)
	SaveVerdict(ctx context.Context, verdict models.Verdict) error
	UpdateEmbedding(ctx context.Context, claimID string, embedding []float64) error
}

// MarketStore reads markets and their externally computed signals.
type MarketStore interface {
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	ResolveMarket(ctx context.Context, id string, outcome bool, resolvedAt time.Time) error
	LatestSentimentSignal(ctx context.Context, marketID string) (*models.SentimentSignal, error)
	LatestNewsSignal(ctx context.Context, marketID string) (*models.NewsSignal, error)
}

// PredictionStore persists current predictions and reads calibration inputs.
type PredictionStore interface {
	SaveCurrent(ctx context.Context, p models.Prediction) (*models.Prediction, error)
	GetResolvedPredictions(ctx context.Context, agentID string, since time.Time) ([]models.ResolvedPrediction, error)
	CountPredictions(ctx context.Context, agentID string, since time.Time) (int, error)
}

// VoteStore aggregates raw crowd votes on demand.
type VoteStore interface {
	Aggregate(ctx context.Context, marketID string) (total, yes, no int, avgConfidence float64, err error)
}

// ReportStore persists calibration reports.
type ReportStore interface {
	Save(ctx context.Context, report models.CalibrationReport) (*models.CalibrationReport, error)
}

// Gatherer assembles the evidence bundle for a claim text.
type Gatherer interface {
	Gather(ctx context.Context, claimText string) ([]models.EvidenceItem, []models.VerifiedClaimMatch, []float64)
}

// Classifier produces a verdict from a claim and its evidence.
type Classifier interface {
	Classify(ctx context.Context, claimID, claimText string, evidence []models.EvidenceItem) models.Verdict
}

// Engine wires evidence gathering, verdict classification, signal synthesis,
// and calibration tracking over the persistence layer. Each operation is a
// short-lived stateless unit of work; concurrent calls for different claims
// or markets are safe, while serializing re-verification of the same claim
// is the caller's responsibility.
type Engine struct {
	claims      ClaimStore
	markets     MarketStore
	predictions PredictionStore
	votes       VoteStore
	reports     ReportStore

	gatherer    Gatherer
	classifier  Classifier
	synthesizer *synthesis.Synthesizer
	tracker     *calibration.Tracker

	agentID string
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
}

// Config bundles the engine's collaborators.
type Config struct {
	Claims      ClaimStore
	Markets     MarketStore
	Predictions PredictionStore
	Votes       VoteStore
	Reports     ReportStore
	Gatherer    Gatherer
	Classifier  Classifier
	Synthesizer *synthesis.Synthesizer
	Tracker     *calibration.Tracker
	AgentID     string
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

func New(cfg Config) *Engine {
	return &Engine{
		claims:      cfg.Claims,
		markets:     cfg.Markets,
		predictions: cfg.Predictions,
		votes:       cfg.Votes,
		reports:     cfg.Reports,
		gatherer:    cfg.Gatherer,
		classifier:  cfg.Classifier,
		synthesizer: cfg.Synthesizer,
		tracker:     cfg.Tracker,
		agentID:     cfg.AgentID,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// VerifyClaim runs the full verification pipeline for one claim: gather
// evidence, classify, persist the verdict as an atomic replace, and store
// the claim embedding for future hybrid search. Provider outages degrade to
// the fallback verdict; only invalid input or persistence failures surface
// as errors.
func (e *Engine) VerifyClaim(ctx context.Context, claimID string) (*models.Verdict, error) {
	claim, err := e.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("claim not found: %s", claimID)
	}
	if err := claim.Validate(); err != nil {
		return nil, fmt.Errorf("invalid claim: %w", err)
	}

	start := e.now()
	evidence, matches, embedding := e.gatherer.Gather(ctx, claim.ClaimText)

	verdict := e.classifier.Classify(ctx, claim.ID, claim.ClaimText, evidence)

	if err := e.claims.SaveVerdict(ctx, verdict); err != nil {
		return nil, fmt.Errorf("failed to save verdict: %w", err)
	}
	e.metrics.RecordVerification(string(verdict.Status))

	if len(embedding) > 0 {
		if err := e.claims.UpdateEmbedding(ctx, claim.ID, embedding); err != nil {
			e.logger.Warn("failed to store claim embedding", "claim_id", claim.ID, "error", err)
		}
	}

	e.logger.Info("claim verified",
		"claim_id", claim.ID,
		"status", verdict.Status,
		"confidence", verdict.Confidence,
		"evidence_items", len(evidence),
		"prior_matches", len(matches),
		"duration_ms", time.Since(start).Milliseconds())

	return &verdict, nil
}

// ForecastMarket recomputes the current prediction for a market from the
// latest persisted signals. The AI anchor probability comes from the linked
// claim's verdict when one exists, otherwise from classifying the market
// question directly. Missing signals degrade the analysis tier; they never
// fail the forecast.
func (e *Engine) ForecastMarket(ctx context.Context, marketID string) (*models.Prediction, error) {
	market, err := e.markets.GetMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}
	if market == nil {
		return nil, fmt.Errorf("market not found: %s", marketID)
	}
	if market.Status != models.MarketOpen {
		return nil, fmt.Errorf("market %s is %s, not open", marketID, market.Status)
	}

	anchor, err := e.aiAnchor(ctx, market)
	if err != nil {
		return nil, err
	}

	in := synthesis.Input{
		MarketID:         market.ID,
		AgentID:          e.agentID,
		AIRawProbability: anchor,
		AsOf:             e.now().UTC(),
	}

	if sentiment, err := e.markets.LatestSentimentSignal(ctx, marketID); err != nil {
		e.logger.Warn("failed to load sentiment signal", "market_id", marketID, "error", err)
	} else {
		in.Sentiment = sentiment
	}
	if news, err := e.markets.LatestNewsSignal(ctx, marketID); err != nil {
		e.logger.Warn("failed to load news signal", "market_id", marketID, "error", err)
	} else {
		in.News = news
	}
	if total, yes, no, avgConf, err := e.votes.Aggregate(ctx, marketID); err != nil {
		e.logger.Warn("failed to aggregate votes", "market_id", marketID, "error", err)
	} else if total > 0 {
		in.Votes = &models.VoteAggregation{
			TotalVotes:    total,
			YesVotes:      yes,
			NoVotes:       no,
			YesPercentage: 100 * float64(yes) / float64(total),
			NoPercentage:  100 * float64(no) / float64(total),
			AvgConfidence: avgConf,
		}
	}

	prediction := e.synthesizer.Synthesize(in)

	saved, err := e.predictions.SaveCurrent(ctx, prediction)
	if err != nil {
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}
	e.metrics.RecordForecast()

	e.logger.Info("market forecast updated",
		"market_id", market.ID,
		"calibrated_probability", saved.CalibratedProbability,
		"confidence", saved.Confidence,
		"tier", saved.AnalysisTier)

	return saved, nil
}

// aiAnchor derives the AI raw probability for a market. A linked verified
// claim supplies it directly; otherwise the market question goes through the
// evidence and classification pipeline itself.
func (e *Engine) aiAnchor(ctx context.Context, market *models.Market) (float64, error) {
	if market.ClaimID != "" {
		claim, err := e.claims.GetClaim(ctx, market.ClaimID)
		if err != nil {
			return 0, fmt.Errorf("failed to load linked claim: %w", err)
		}
		if claim != nil && claim.Verdict != nil {
			return AnchorFromVerdict(claim.Verdict), nil
		}
	}

	evidence, _, _ := e.gatherer.Gather(ctx, market.Question)
	verdict := e.classifier.Classify(ctx, market.ID, market.Question, evidence)
	return AnchorFromVerdict(&verdict), nil
}

// AnchorFromVerdict maps a verdict onto a YES probability: Verified pushes
// toward 1 and Debunked toward 0 in proportion to confidence, Misleading
// leans mildly NO, and Unverified stays at the ignorance prior.
func AnchorFromVerdict(v *models.Verdict) float64 {
	switch v.Status {
	case models.StatusVerified:
		return models.Clamp01(0.5 + 0.45*v.Confidence)
	case models.StatusDebunked:
		return models.Clamp01(0.5 - 0.45*v.Confidence)
	case models.StatusMisleading:
		return models.Clamp01(0.5 - 0.2*v.Confidence)
	default:
		return 0.5
	}
}

// ResolveMarket records the externally supplied binary outcome. The engine
// never decides outcomes itself.
func (e *Engine) ResolveMarket(ctx context.Context, marketID string, outcome bool) error {
	market, err := e.markets.GetMarket(ctx, marketID)
	if err != nil {
		return fmt.Errorf("failed to load market: %w", err)
	}
	if market == nil {
		return fmt.Errorf("market not found: %s", marketID)
	}
	if market.Status == models.MarketResolved {
		return fmt.Errorf("market already resolved: %s", marketID)
	}

	if err := e.markets.ResolveMarket(ctx, marketID, outcome, e.now().UTC()); err != nil {
		return fmt.Errorf("failed to resolve market: %w", err)
	}
	e.logger.Info("market resolved", "market_id", marketID, "outcome", outcome)
	return nil
}

// RunCalibrationReport scores an agent's resolved predictions over the
// window and persists the superseding report.
func (e *Engine) RunCalibrationReport(ctx context.Context, agentID string, windowDays int) (*models.CalibrationReport, error) {
	now := e.now().UTC()
	since := now.AddDate(0, 0, -windowDays)

	resolved, err := e.predictions.GetResolvedPredictions(ctx, agentID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolved predictions: %w", err)
	}
	total, err := e.predictions.CountPredictions(ctx, agentID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}

	report := e.tracker.Report(agentID, windowDays, resolved, total, now)

	saved, err := e.reports.Save(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to save calibration report: %w", err)
	}
	e.metrics.RecordCalibrationRun()

	return saved, nil
}
