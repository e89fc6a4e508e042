package verdict

import (
	"context"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/inference"
	"github.com/POLIGRAPH/poligraph/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider classifies claims through the OpenAI chat completions API
// with JSON-object response formatting.
type OpenAIProvider struct {
	client          *openai.Client
	model           string
	inferenceLogger *inference.Logger
}

// NewOpenAIProvider creates the primary verdict provider.
func NewOpenAIProvider(apiKey, model string, inferenceLogger *inference.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		client:          openai.NewClient(apiKey),
		model:           model,
		inferenceLogger: inferenceLogger,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Classify(ctx context.Context, claimText string, evidence []models.EvidenceItem) (*rawVerdict, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		MaxTokens:   800,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildVerdictPrompt(claimText, evidence)},
		},
	}

	startTime := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	latency := time.Since(startTime)

	if p.inferenceLogger != nil {
		usage := struct {
			PromptTokens     int
			CompletionTokens int
			TotalTokens      int
		}{}
		if err == nil {
			usage.PromptTokens = resp.Usage.PromptTokens
			usage.CompletionTokens = resp.Usage.CompletionTokens
			usage.TotalTokens = resp.Usage.TotalTokens
		}
		p.inferenceLogger.LogOpenAICall(ctx, p.model, "verdict_classification", usage, latency, err, map[string]interface{}{
			"evidence_count": len(evidence),
		})
	}

	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	return parseRawVerdict(resp.Choices[0].Message.Content)
}
