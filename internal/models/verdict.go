package models

import "time"

// VerdictStatus is the engine's classification of a claim's truthfulness.
type VerdictStatus string

const (
	StatusVerified   VerdictStatus = "Verified"
	StatusDebunked   VerdictStatus = "Debunked"
	StatusMisleading VerdictStatus = "Misleading"
	StatusUnverified VerdictStatus = "Unverified"
)

// ParseVerdictStatus maps a raw status string onto one of the four allowed
// values. Anything unrecognized collapses to Unverified so that a malformed
// provider response can never introduce a fifth state.
func ParseVerdictStatus(raw string) VerdictStatus {
	switch VerdictStatus(raw) {
	case StatusVerified, StatusDebunked, StatusMisleading, StatusUnverified:
		return VerdictStatus(raw)
	default:
		return StatusUnverified
	}
}

// Valid reports whether the status is one of the four allowed values.
func (s VerdictStatus) Valid() bool {
	switch s {
	case StatusVerified, StatusDebunked, StatusMisleading, StatusUnverified:
		return true
	}
	return false
}

// Verdict is the classification result attached to a claim. Owned exclusively
// by its claim; a re-verification replaces the verdict atomically rather than
// appending a second one.
type Verdict struct {
	ClaimID           string         `json:"claim_id"`
	Status            VerdictStatus  `json:"status"`
	Explanation       string         `json:"explanation"`
	Confidence        float64        `json:"confidence"` // [0,1], provider self-assessment
	KeyEvidencePoints []string       `json:"key_evidence_points"`
	Sources           []string       `json:"sources"`          // URLs drawn from the supplied evidence
	EvidenceDetails   []EvidenceItem `json:"evidence_details"` // top-K by relevance, persisted for display
	Provider          string         `json:"provider,omitempty"`
	Model             string         `json:"model,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Normalize enforces the documented ranges before persistence: status is one
// of the four enum values, confidence sits in [0,1], and every evidence item
// is clamped.
func (v *Verdict) Normalize() {
	if !v.Status.Valid() {
		v.Status = StatusUnverified
	}
	v.Confidence = Clamp01(v.Confidence)
	for i := range v.EvidenceDetails {
		v.EvidenceDetails[i].Normalize()
	}
}
