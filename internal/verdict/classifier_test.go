package verdict

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/models"
)

type stubProvider struct {
	name    string
	verdict *rawVerdict
	err     error
	calls   int
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return s.name + "-model" }

func (s *stubProvider) Classify(ctx context.Context, claimText string, evidence []models.EvidenceItem) (*rawVerdict, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

func newTestClassifier(t *testing.T, providers ...Provider) *Classifier {
	t.Helper()
	collector, err := metrics.NewCollector()
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	return NewClassifier(providers, 5*time.Second, collector, slog.New(slog.DiscardHandler))
}

func TestClassifyUsesPrimaryProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", verdict: &rawVerdict{
		Status:      "Verified",
		Confidence:  0.9,
		Explanation: "well supported",
	}}
	secondary := &stubProvider{name: "secondary"}

	c := newTestClassifier(t, primary, secondary)
	verdict := c.Classify(context.Background(), "claim-1", "the sky is blue", nil)

	if verdict.Status != models.StatusVerified {
		t.Errorf("expected Verified, got %s", verdict.Status)
	}
	if verdict.Provider != "primary" {
		t.Errorf("expected primary provider, got %s", verdict.Provider)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called when primary succeeds, got %d calls", secondary.calls)
	}
}

func TestClassifyFallsBackInOrder(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &stubProvider{name: "secondary", verdict: &rawVerdict{
		Status:      "Debunked",
		Confidence:  0.8,
		Explanation: "contradicted by evidence",
	}}

	c := newTestClassifier(t, primary, secondary)
	verdict := c.Classify(context.Background(), "claim-2", "text", nil)

	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("expected both providers tried once, got %d and %d", primary.calls, secondary.calls)
	}
	if verdict.Status != models.StatusDebunked {
		t.Errorf("expected Debunked from fallback, got %s", verdict.Status)
	}
	if verdict.Provider != "secondary" {
		t.Errorf("expected secondary provider, got %s", verdict.Provider)
	}
}

func TestClassifyAllProvidersFailEmitsFallback(t *testing.T) {
	c := newTestClassifier(t,
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b", err: errors.New("also down")},
	)
	verdict := c.Classify(context.Background(), "claim-3", "text", nil)

	if verdict.Status != models.StatusUnverified {
		t.Errorf("expected Unverified fallback, got %s", verdict.Status)
	}
	if verdict.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", verdict.Confidence)
	}
	if verdict.Explanation != FallbackExplanation {
		t.Errorf("unexpected explanation: %s", verdict.Explanation)
	}
	if verdict.Provider != "fallback" {
		t.Errorf("expected fallback provider marker, got %s", verdict.Provider)
	}
}

func TestClassifyRejectsSourcesOutsideEvidence(t *testing.T) {
	evidence := []models.EvidenceItem{
		{URL: "https://reuters.com/story", Title: "story", RelevanceScore: 0.9},
	}
	provider := &stubProvider{name: "p", verdict: &rawVerdict{
		Status:      "Misleading",
		Confidence:  1.7,
		Explanation: "partially true",
		Sources:     []string{"https://reuters.com/story", "https://fabricated.example/made-up"},
	}}

	c := newTestClassifier(t, provider)
	verdict := c.Classify(context.Background(), "claim-4", "text", evidence)

	if len(verdict.Sources) != 1 || verdict.Sources[0] != "https://reuters.com/story" {
		t.Errorf("expected only evidence-backed source kept, got %v", verdict.Sources)
	}
	if verdict.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %f", verdict.Confidence)
	}
}

func TestClassifyCollapsesUnknownStatus(t *testing.T) {
	provider := &stubProvider{name: "p", verdict: &rawVerdict{
		Status:      "Mostly-True",
		Confidence:  0.6,
		Explanation: "close enough",
	}}

	c := newTestClassifier(t, provider)
	verdict := c.Classify(context.Background(), "claim-5", "text", nil)
	if verdict.Status != models.StatusUnverified {
		t.Errorf("expected unknown status collapsed to Unverified, got %s", verdict.Status)
	}
}

func TestParseRawVerdictToleratesFences(t *testing.T) {
	content := "Here is my analysis:\n```json\n{\"status\": \"Verified\", \"confidence\": 0.8, \"explanation\": \"ok\"}\n```"
	raw, err := parseRawVerdict(content)
	if err != nil {
		t.Fatalf("parseRawVerdict failed: %v", err)
	}
	if raw.Status != "Verified" || raw.Confidence != 0.8 {
		t.Errorf("unexpected parse result: %+v", raw)
	}
}

func TestParseRawVerdictRejectsMissingFields(t *testing.T) {
	if _, err := parseRawVerdict(`{"confidence": 0.5, "explanation": "x"}`); err == nil {
		t.Error("expected error for missing status")
	}
	if _, err := parseRawVerdict(`{"status": "Verified", "confidence": 0.5}`); err == nil {
		t.Error("expected error for missing explanation")
	}
	if _, err := parseRawVerdict("no json here"); err == nil {
		t.Error("expected error for non-JSON content")
	}
}
