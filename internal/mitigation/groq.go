package mitigation

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// systemPrompt frames every mitigation request.
const systemPrompt = "You are an expert supply chain consultant. Provide actionable mitigation strategies in valid JSON format."

// perCallTimeout bounds a single completion call. Separate from the
// analysis-wide context so one slow call cannot stall the whole batch.
const perCallTimeout = 30 * time.Second

// GroqOptions configures the Groq chat completion client.
type GroqOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// GroqGenerator calls the Groq chat completions API. Groq exposes an
// OpenAI-compatible endpoint, so the client only needs a base URL swap.
type GroqGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewGroqGenerator creates a generator, or nil when no API key is set so
// callers can hand the Service a fallback-only configuration.
func NewGroqGenerator(opts GroqOptions) *GroqGenerator {
	if opts.APIKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &GroqGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		maxTokens:   opts.MaxTokens,
	}
}

func (g *GroqGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
