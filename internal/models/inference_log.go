package models

import "time"

// InferenceLog records a single LLM API call for offline inspection. Verdict
// classification failures (timeouts, malformed responses) land here so that
// provider degradation is auditable without ever failing the pipeline.
type InferenceLog struct {
	ID           int       `json:"id"`
	Provider     string    `json:"provider"`  // 'openai', 'anthropic'
	Model        string    `json:"model"`     // 'gpt-4o', 'claude-sonnet-4', etc.
	Operation    string    `json:"operation"` // 'verdict_classification', 'claim_embedding', 'credibility_assessment'
	TokensUsed   int       `json:"tokens_used"`
	InputTokens  *int      `json:"input_tokens"`
	OutputTokens *int      `json:"output_tokens"`
	CostUSD      *float64  `json:"cost_usd"`
	LatencyMs    *int      `json:"latency_ms"`
	Status       string    `json:"status"` // 'success', 'error'
	ErrorMessage *string   `json:"error_message"`
	Metadata     string    `json:"metadata"` // JSONB metadata
	CreatedAt    time.Time `json:"created_at"`
}

// InferenceLogStats aggregates call volume and spend for the ops dashboard.
type InferenceLogStats struct {
	TotalCalls      int     `json:"total_calls"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	SuccessfulCalls int     `json:"successful_calls"`
	FailedCalls     int     `json:"failed_calls"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}
