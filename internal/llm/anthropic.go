package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"infraction-insights/internal/common/config"
	apperrors "infraction-insights/internal/common/errors"
	commonhttp "infraction-insights/internal/common/http"
)

// AnthropicProvider completes through the Anthropic messages API.
type AnthropicProvider struct {
	apiKey     string
	endpoint   string
	model      string
	version    string
	httpClient *commonhttp.Client
}

// NewAnthropic builds a provider from config.
func NewAnthropic(cfg config.LLMConfig) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:   cfg.Anthropic.APIKey,
		endpoint: cfg.Anthropic.Endpoint,
		model:    cfg.Anthropic.Model,
		version:  cfg.Anthropic.Version,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Anthropic.Timeout)),
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.version)

	resp, err := p.httpClient.DoWithContext(ctx, httpReq)
	if err != nil {
		return "", apperrors.NewProviderExhaustedError(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewProviderExhaustedError(err.Error())
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.NewProviderExhaustedError(fmt.Sprintf("unparseable response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("anthropic returned %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
		}
		return "", apperrors.NewProviderExhaustedError(msg)
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", apperrors.NewProviderExhaustedError("anthropic returned no text content")
	}

	return strings.TrimSpace(out.String()), nil
}
