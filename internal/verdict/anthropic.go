package verdict

import (
	"context"
	"fmt"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/inference"
	"github.com/POLIGRAPH/poligraph/internal/models"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider classifies claims through the Anthropic messages API.
// Configured as the fallback behind OpenAI.
type AnthropicProvider struct {
	client          anthropic.Client
	model           string
	inferenceLogger *inference.Logger
}

// NewAnthropicProvider creates the fallback verdict provider.
func NewAnthropicProvider(apiKey, model string, inferenceLogger *inference.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:           model,
		inferenceLogger: inferenceLogger,
	}
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Classify(ctx context.Context, claimText string, evidence []models.EvidenceItem) (*rawVerdict, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   800,
		Temperature: anthropic.Float(0.1),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildVerdictPrompt(claimText, evidence))),
		},
	}

	startTime := time.Now()
	resp, err := p.client.Messages.New(ctx, req)
	latency := time.Since(startTime)

	if p.inferenceLogger != nil {
		usage := struct {
			InputTokens  int
			OutputTokens int
		}{}
		if err == nil {
			usage.InputTokens = int(resp.Usage.InputTokens)
			usage.OutputTokens = int(resp.Usage.OutputTokens)
		}
		p.inferenceLogger.LogAnthropicCall(ctx, p.model, "verdict_classification", usage, latency, err, map[string]interface{}{
			"evidence_count": len(evidence),
		})
	}

	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no response content")
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	return parseRawVerdict(content)
}
