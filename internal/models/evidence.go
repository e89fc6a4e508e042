package models

import (
	"net/url"
	"strings"
	"time"
)

// EvidenceItem is a single piece of supporting or refuting material gathered
// for a claim: a web search result, or a previously verified claim surfaced
// by hybrid search.
type EvidenceItem struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	Domain         string    `json:"domain"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
	RelevanceScore float64   `json:"relevance_score"` // [0,1]
}

// Normalize clamps the relevance score and derives the domain from the URL
// when the producer did not set it. Called at the boundary where external
// search data enters the engine.
func (e *EvidenceItem) Normalize() {
	e.RelevanceScore = Clamp01(e.RelevanceScore)
	if e.Domain == "" {
		e.Domain = DomainOf(e.URL)
	}
}

// DomainOf extracts the bare host (no port, no www prefix) from a raw URL.
// Returns "" for unparseable input.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := parsed.Host
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}

// Clamp01 bounds a scalar to [0,1]. All persisted relevance, impact, and
// confidence values pass through this before storage.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
