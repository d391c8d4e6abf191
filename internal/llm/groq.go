package llm

import (
	"context"
	"math"
	"strings"

	"infraction-insights/internal/common/config"
	apperrors "infraction-insights/internal/common/errors"

	openai "github.com/sashabaranov/go-openai"
)

// GroqProvider completes through Groq's OpenAI-compatible chat endpoint.
type GroqProvider struct {
	client *openai.Client
	model  string
}

// NewGroq builds a provider from config. The base URL points at Groq but any
// OpenAI-compatible endpoint works.
func NewGroq(cfg config.LLMConfig) *GroqProvider {
	clientCfg := openai.DefaultConfig(cfg.Groq.APIKey)
	clientCfg.BaseURL = cfg.Groq.BaseURL

	return &GroqProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Groq.Model,
	}
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	// The openai request marshals Temperature with omitempty, so a plain 0
	// would be dropped and the endpoint would fall back to its default of 1.
	// The library's convention for a true zero is the smallest non-zero float.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", apperrors.NewProviderExhaustedError(err.Error())
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewProviderExhaustedError("groq returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
