package models

import "time"

// MarketStatus tracks the lifecycle of a prediction market question.
type MarketStatus string

const (
	MarketOpen     MarketStatus = "open"
	MarketResolved MarketStatus = "resolved"
	MarketClosed   MarketStatus = "closed"
)

// Market is an open-ended binary prediction question, optionally linked to a
// claim. The engine estimates its probability; it never decides the outcome —
// resolution arrives from an external authority.
type Market struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	ClaimID    string       `json:"claim_id,omitempty"`
	Status     MarketStatus `json:"status"`
	Outcome    *bool        `json:"outcome,omitempty"` // set on resolution, true = YES
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	ClosesAt   *time.Time   `json:"closes_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// VoteAggregation summarizes crowd votes on a market. Derived on demand from
// individual user votes by the vote collaborator; the engine consumes it
// read-only and never re-derives it from raw votes.
type VoteAggregation struct {
	TotalVotes    int     `json:"total_votes"`
	YesVotes      int     `json:"yes_votes"`
	NoVotes       int     `json:"no_votes"`
	YesPercentage float64 `json:"yes_percentage"`
	NoPercentage  float64 `json:"no_percentage"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// SentimentSignal is the externally computed social-sentiment aggregate for a
// market: momentum in [-1,1] where positive leans YES.
type SentimentSignal struct {
	Momentum   float64   `json:"momentum"` // [-1,1]
	Volume     int       `json:"volume"`   // number of posts sampled
	ComputedAt time.Time `json:"computed_at"`
}

// NewsSignal is the externally computed credibility-weighted news aggregate:
// lean in [-1,1] where positive supports YES, weighted by source credibility.
type NewsSignal struct {
	Lean           float64   `json:"lean"`            // [-1,1]
	AvgCredibility float64   `json:"avg_credibility"` // [0,1]
	ArticleCount   int       `json:"article_count"`
	ComputedAt     time.Time `json:"computed_at"`
}
