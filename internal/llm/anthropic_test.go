package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"infraction-insights/internal/common/config"
	apperrors "infraction-insights/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnthropicTestProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var cfg config.LLMConfig
	cfg.Anthropic.APIKey = "test-key"
	cfg.Anthropic.Endpoint = srv.URL
	cfg.Anthropic.Model = "claude-3-5-haiku-latest"
	cfg.Anthropic.Version = "2023-06-01"
	cfg.Anthropic.Timeout = 5000

	return NewAnthropic(cfg)
}

func TestAnthropicComplete(t *testing.T) {
	provider := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-5-haiku-latest", req.Model)
		assert.Equal(t, float32(0), req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "SELECT 1"},
			},
		})
	})

	out, err := provider.Complete(context.Background(), Request{
		Prompt:      "gere a consulta",
		Temperature: 0,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
}

func TestAnthropicAPIError(t *testing.T) {
	provider := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "rate_limit_error", "message": "quota exceeded"},
		})
	})

	_, err := provider.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderExhausted))
	assert.Contains(t, err.Error(), "Completion provider unavailable")
}

func TestNoopProvider(t *testing.T) {
	_, err := NoopProvider{}.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderExhausted))
}

func TestFromConfig(t *testing.T) {
	t.Run("groq with key", func(t *testing.T) {
		var cfg config.LLMConfig
		cfg.Provider = "groq"
		cfg.Groq.APIKey = "k"
		cfg.Groq.BaseURL = "https://api.groq.com/openai/v1"
		assert.Equal(t, "groq", FromConfig(cfg).Name())
	})

	t.Run("anthropic with key", func(t *testing.T) {
		var cfg config.LLMConfig
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = "k"
		assert.Equal(t, "anthropic", FromConfig(cfg).Name())
	})

	t.Run("missing key degrades to noop", func(t *testing.T) {
		var cfg config.LLMConfig
		cfg.Provider = "groq"
		assert.Equal(t, "none", FromConfig(cfg).Name())
	})
}
