package models

import (
	"fmt"
	"strings"
	"time"
)

// Claim represents a short political assertion extracted from an ingested post.
// Claims are immutable after creation; verification attaches a Verdict but
// never rewrites the claim text itself.
type Claim struct {
	ID           string      `json:"id"`
	ClaimText    string      `json:"claim_text"`
	OriginalText string      `json:"original_text,omitempty"` // source wording before normalization
	Source       SourcePost  `json:"source"`
	Verdict      *Verdict    `json:"verdict,omitempty"`
	Embedding    []float64   `json:"-"` // populated once verified, used by hybrid search
	CreatedAt    time.Time   `json:"created_at"`
	VerifiedAt   *time.Time  `json:"verified_at,omitempty"`
}

// SourcePost describes where a claim was scraped from. Read-only context
// supplied by the ingestion layer.
type SourcePost struct {
	Platform  string    `json:"platform"` // e.g. "twitter", "reddit", "news"
	Author    string    `json:"author,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects claims the engine cannot meaningfully verify. This is the
// only input condition that propagates as a hard error to the caller.
func (c *Claim) Validate() error {
	if strings.TrimSpace(c.ClaimText) == "" {
		return fmt.Errorf("claim %s has empty claim text", c.ID)
	}
	return nil
}

// IsVerified reports whether a verification run has completed for this claim.
// Absence of a verdict implies an implicit Unverified status.
func (c *Claim) IsVerified() bool {
	return c.Verdict != nil
}

// EffectiveStatus returns the verdict status, or StatusUnverified when no
// verdict has been recorded yet.
func (c *Claim) EffectiveStatus() VerdictStatus {
	if c.Verdict == nil {
		return StatusUnverified
	}
	return c.Verdict.Status
}

// VerifiedClaimMatch is a previously verified claim surfaced by hybrid search
// as prior-art evidence ("this was already fact-checked as X"). Score carries
// the keyword rank or cosine similarity depending on which path produced it.
type VerifiedClaimMatch struct {
	ClaimID     string        `json:"claim_id"`
	ClaimText   string        `json:"claim_text"`
	Status      VerdictStatus `json:"status"`
	Explanation string        `json:"explanation"`
	VerifiedAt  time.Time     `json:"verified_at"`
	Score       float64       `json:"score"`
	Embedding   []float64     `json:"-"`
}
