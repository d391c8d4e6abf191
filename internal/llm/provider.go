// Package llm abstracts the completion providers used for query generation
// and answer synthesis.
package llm

import (
	"context"

	"infraction-insights/internal/common/config"
	apperrors "infraction-insights/internal/common/errors"
)

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Provider is a text completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// NoopProvider stands in when no provider is configured. Every call reports
// provider exhaustion, which pushes the resolver onto the local fallback.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "none" }

func (NoopProvider) Complete(ctx context.Context, req Request) (string, error) {
	return "", apperrors.NewProviderExhaustedError("no completion provider configured")
}

// FromConfig picks the configured provider. Missing API keys degrade to the
// noop provider rather than failing startup.
func FromConfig(cfg config.LLMConfig) Provider {
	switch cfg.Provider {
	case "groq":
		if cfg.Groq.APIKey != "" {
			return NewGroq(cfg)
		}
	case "anthropic":
		if cfg.Anthropic.APIKey != "" {
			return NewAnthropic(cfg)
		}
	}
	return NoopProvider{}
}
