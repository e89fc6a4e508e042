package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/models"
)

// Provider classifies a claim against its evidence bundle using one LLM
// backend. Implementations return the raw parsed verdict; range and
// source-whitelist validation happens in the Classifier.
type Provider interface {
	Name() string
	Model() string
	Classify(ctx context.Context, claimText string, evidence []models.EvidenceItem) (*rawVerdict, error)
}

// rawVerdict is the JSON contract every provider must produce.
type rawVerdict struct {
	Status            string   `json:"status"`
	Confidence        float64  `json:"confidence"`
	Explanation       string   `json:"explanation"`
	KeyEvidencePoints []string `json:"key_evidence_points"`
	Sources           []string `json:"sources"`
}

// parseRawVerdict decodes a provider response, tolerating models that wrap
// the JSON object in prose or a markdown fence.
func parseRawVerdict(content string) (*rawVerdict, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response: %s", truncate(content, 200))
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}
	if raw.Status == "" {
		return nil, fmt.Errorf("verdict response missing status")
	}
	if raw.Explanation == "" {
		return nil, fmt.Errorf("verdict response missing explanation")
	}
	return &raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
