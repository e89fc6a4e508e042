package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/calibration"
	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/POLIGRAPH/poligraph/internal/synthesis"
)

type stubClaimStore struct {
	claims        map[string]*models.Claim
	savedVerdict  *models.Verdict
	savedVector   []float64
	saveVerdictFn func(models.Verdict) error
}

func (s *stubClaimStore) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	return s.claims[id], nil
}

func (s *stubClaimStore) SaveVerdict(ctx context.Context, v models.Verdict) error {
	if s.saveVerdictFn != nil {
		return s.saveVerdictFn(v)
	}
	s.savedVerdict = &v
	return nil
}

func (s *stubClaimStore) UpdateEmbedding(ctx context.Context, claimID string, embedding []float64) error {
	s.savedVector = embedding
	return nil
}

type stubMarketStore struct {
	markets    map[string]*models.Market
	sentiment  *models.SentimentSignal
	news       *models.NewsSignal
	resolved   map[string]bool
	resolvedAt map[string]time.Time
}

func (s *stubMarketStore) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	return s.markets[id], nil
}

func (s *stubMarketStore) ResolveMarket(ctx context.Context, id string, outcome bool, resolvedAt time.Time) error {
	if s.resolved == nil {
		s.resolved = map[string]bool{}
		s.resolvedAt = map[string]time.Time{}
	}
	s.resolved[id] = outcome
	s.resolvedAt[id] = resolvedAt
	return nil
}

func (s *stubMarketStore) LatestSentimentSignal(ctx context.Context, marketID string) (*models.SentimentSignal, error) {
	return s.sentiment, nil
}

func (s *stubMarketStore) LatestNewsSignal(ctx context.Context, marketID string) (*models.NewsSignal, error) {
	return s.news, nil
}

type stubPredictionStore struct {
	saved    *models.Prediction
	resolved []models.ResolvedPrediction
	total    int
}

func (s *stubPredictionStore) SaveCurrent(ctx context.Context, p models.Prediction) (*models.Prediction, error) {
	p.ID = "pred-1"
	s.saved = &p
	return &p, nil
}

func (s *stubPredictionStore) GetResolvedPredictions(ctx context.Context, agentID string, since time.Time) ([]models.ResolvedPrediction, error) {
	return s.resolved, nil
}

func (s *stubPredictionStore) CountPredictions(ctx context.Context, agentID string, since time.Time) (int, error) {
	return s.total, nil
}

type stubVoteStore struct {
	total, yes, no int
	avgConf        float64
}

func (s *stubVoteStore) Aggregate(ctx context.Context, marketID string) (int, int, int, float64, error) {
	return s.total, s.yes, s.no, s.avgConf, nil
}

type stubReportStore struct {
	saved *models.CalibrationReport
}

func (s *stubReportStore) Save(ctx context.Context, r models.CalibrationReport) (*models.CalibrationReport, error) {
	r.ID = "report-1"
	s.saved = &r
	return &r, nil
}

type stubGatherer struct {
	evidence  []models.EvidenceItem
	embedding []float64
}

func (s *stubGatherer) Gather(ctx context.Context, claimText string) ([]models.EvidenceItem, []models.VerifiedClaimMatch, []float64) {
	return s.evidence, nil, s.embedding
}

type stubClassifier struct {
	verdict models.Verdict
}

func (s *stubClassifier) Classify(ctx context.Context, claimID, claimText string, evidence []models.EvidenceItem) models.Verdict {
	v := s.verdict
	v.ClaimID = claimID
	return v
}

func newTestEngine(t *testing.T, claims *stubClaimStore, markets *stubMarketStore, preds *stubPredictionStore, votes *stubVoteStore, reports *stubReportStore, gatherer *stubGatherer, classifier *stubClassifier) *Engine {
	t.Helper()
	collector, err := metrics.NewCollector()
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	e := New(Config{
		Claims:      claims,
		Markets:     markets,
		Predictions: preds,
		Votes:       votes,
		Reports:     reports,
		Gatherer:    gatherer,
		Classifier:  classifier,
		Synthesizer: synthesis.NewSynthesizer(logger),
		Tracker:     calibration.NewTracker(logger),
		AgentID:     "poligraph-v1",
		Metrics:     collector,
		Logger:      logger,
	})
	e.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestVerifyClaimPersistsVerdictAndEmbedding(t *testing.T) {
	claims := &stubClaimStore{claims: map[string]*models.Claim{
		"c1": {ID: "c1", ClaimText: "the earth orbits the sun"},
	}}
	gatherer := &stubGatherer{
		evidence:  []models.EvidenceItem{{URL: "https://nasa.gov/x", RelevanceScore: 0.9}},
		embedding: []float64{0.1, 0.2},
	}
	classifier := &stubClassifier{verdict: models.Verdict{
		Status:      models.StatusVerified,
		Confidence:  0.95,
		Explanation: "well established",
	}}
	e := newTestEngine(t, claims, &stubMarketStore{}, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, gatherer, classifier)

	verdict, err := e.VerifyClaim(context.Background(), "c1")
	if err != nil {
		t.Fatalf("VerifyClaim failed: %v", err)
	}
	if verdict.Status != models.StatusVerified {
		t.Errorf("unexpected status: %s", verdict.Status)
	}
	if claims.savedVerdict == nil || claims.savedVerdict.ClaimID != "c1" {
		t.Errorf("verdict was not persisted for c1: %+v", claims.savedVerdict)
	}
	if len(claims.savedVector) != 2 {
		t.Errorf("embedding was not persisted, got %v", claims.savedVector)
	}
}

func TestVerifyClaimUnknownClaim(t *testing.T) {
	e := newTestEngine(t, &stubClaimStore{claims: map[string]*models.Claim{}}, &stubMarketStore{}, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})
	if _, err := e.VerifyClaim(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown claim")
	}
}

func TestVerifyClaimRejectsEmptyText(t *testing.T) {
	claims := &stubClaimStore{claims: map[string]*models.Claim{
		"c1": {ID: "c1", ClaimText: "   "},
	}}
	e := newTestEngine(t, claims, &stubMarketStore{}, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})
	if _, err := e.VerifyClaim(context.Background(), "c1"); err == nil {
		t.Error("expected invalid input error for blank claim text")
	}
}

func TestVerifyClaimSurfacesPersistenceFailure(t *testing.T) {
	claims := &stubClaimStore{
		claims:        map[string]*models.Claim{"c1": {ID: "c1", ClaimText: "x y z"}},
		saveVerdictFn: func(models.Verdict) error { return errors.New("db down") },
	}
	e := newTestEngine(t, claims, &stubMarketStore{}, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{
		verdict: models.Verdict{Status: models.StatusUnverified, Explanation: "n/a"},
	})
	if _, err := e.VerifyClaim(context.Background(), "c1"); err == nil {
		t.Error("expected persistence failure to surface")
	}
}

func TestForecastMarketUsesLinkedClaimVerdict(t *testing.T) {
	claims := &stubClaimStore{claims: map[string]*models.Claim{
		"c1": {ID: "c1", ClaimText: "claim", Verdict: &models.Verdict{
			Status:     models.StatusVerified,
			Confidence: 1,
		}},
	}}
	markets := &stubMarketStore{markets: map[string]*models.Market{
		"m1": {ID: "m1", Question: "will it happen", ClaimID: "c1", Status: models.MarketOpen},
	}}
	preds := &stubPredictionStore{}
	e := newTestEngine(t, claims, markets, preds, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})

	p, err := e.ForecastMarket(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ForecastMarket failed: %v", err)
	}
	if p.RawProbability != 0.95 {
		t.Errorf("expected anchor 0.95 from fully confident Verified verdict, got %v", p.RawProbability)
	}
	if preds.saved == nil {
		t.Error("prediction was not persisted")
	}
	if p.ProbabilityLow > p.CalibratedProbability || p.CalibratedProbability > p.ProbabilityHigh {
		t.Errorf("interval order violated: %v <= %v <= %v", p.ProbabilityLow, p.CalibratedProbability, p.ProbabilityHigh)
	}
}

func TestForecastMarketRejectsResolvedMarket(t *testing.T) {
	markets := &stubMarketStore{markets: map[string]*models.Market{
		"m1": {ID: "m1", Status: models.MarketResolved},
	}}
	e := newTestEngine(t, &stubClaimStore{}, markets, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})
	if _, err := e.ForecastMarket(context.Background(), "m1"); err == nil {
		t.Error("expected error forecasting a resolved market")
	}
}

func TestForecastMarketIncludesCrowdVotes(t *testing.T) {
	markets := &stubMarketStore{markets: map[string]*models.Market{
		"m1": {ID: "m1", Question: "q", Status: models.MarketOpen},
	}}
	votes := &stubVoteStore{total: 50, yes: 30, no: 20, avgConf: 0.7}
	e := newTestEngine(t, &stubClaimStore{}, markets, &stubPredictionStore{}, votes, &stubReportStore{}, &stubGatherer{}, &stubClassifier{
		verdict: models.Verdict{Status: models.StatusUnverified},
	})

	p, err := e.ForecastMarket(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ForecastMarket failed: %v", err)
	}
	if p.CrowdYesPercentage == nil || math.Abs(*p.CrowdYesPercentage-60) > 1e-9 {
		t.Errorf("expected crowd yes percentage 60, got %v", p.CrowdYesPercentage)
	}
}

func TestResolveMarketAlreadyResolved(t *testing.T) {
	markets := &stubMarketStore{markets: map[string]*models.Market{
		"m1": {ID: "m1", Status: models.MarketResolved},
	}}
	e := newTestEngine(t, &stubClaimStore{}, markets, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})
	if err := e.ResolveMarket(context.Background(), "m1", true); err == nil {
		t.Error("expected error resolving an already-resolved market")
	}
}

func TestResolveMarketRecordsOutcome(t *testing.T) {
	markets := &stubMarketStore{markets: map[string]*models.Market{
		"m1": {ID: "m1", Status: models.MarketOpen},
	}}
	e := newTestEngine(t, &stubClaimStore{}, markets, &stubPredictionStore{}, &stubVoteStore{}, &stubReportStore{}, &stubGatherer{}, &stubClassifier{})
	if err := e.ResolveMarket(context.Background(), "m1", true); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if outcome, ok := markets.resolved["m1"]; !ok || !outcome {
		t.Errorf("outcome not recorded: %v", markets.resolved)
	}
}

func TestRunCalibrationReport(t *testing.T) {
	preds := &stubPredictionStore{
		resolved: []models.ResolvedPrediction{
			{CalibratedProbability: 0.9, Outcome: true},
			{CalibratedProbability: 0.9, Outcome: false},
			{CalibratedProbability: 0.1, Outcome: false},
		},
		total: 7,
	}
	reports := &stubReportStore{}
	e := newTestEngine(t, &stubClaimStore{}, &stubMarketStore{}, preds, &stubVoteStore{}, reports, &stubGatherer{}, &stubClassifier{})

	report, err := e.RunCalibrationReport(context.Background(), "poligraph-v1", 90)
	if err != nil {
		t.Fatalf("RunCalibrationReport failed: %v", err)
	}
	if math.Abs(report.BrierScore-0.83/3) > 1e-9 {
		t.Errorf("BrierScore = %v, want %v", report.BrierScore, 0.83/3)
	}
	if report.NumResolved != 3 || report.NumPredictions != 7 {
		t.Errorf("counts = %d/%d, want 3/7", report.NumResolved, report.NumPredictions)
	}
	if reports.saved == nil {
		t.Error("report was not persisted")
	}
}

func TestAnchorFromVerdict(t *testing.T) {
	tests := []struct {
		status     models.VerdictStatus
		confidence float64
		want       float64
	}{
		{models.StatusVerified, 1, 0.95},
		{models.StatusVerified, 0, 0.5},
		{models.StatusDebunked, 1, 0.05},
		{models.StatusMisleading, 0.5, 0.4},
		{models.StatusUnverified, 0.9, 0.5},
	}
	for _, tt := range tests {
		v := &models.Verdict{Status: tt.status, Confidence: tt.confidence}
		if got := AnchorFromVerdict(v); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AnchorFromVerdict(%s, %v) = %v, want %v", tt.status, tt.confidence, got, tt.want)
		}
	}
}
