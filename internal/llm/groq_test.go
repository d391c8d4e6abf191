package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"infraction-insights/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroqTestProvider(t *testing.T, handler http.HandlerFunc) *GroqProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var cfg config.LLMConfig
	cfg.Groq.APIKey = "test-key"
	cfg.Groq.BaseURL = srv.URL
	cfg.Groq.Model = "llama-3.3-70b-versatile"

	return NewGroq(cfg)
}

func TestGroqComplete(t *testing.T) {
	provider := newGroqTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  SELECT 1  "}},
			},
		})
	})

	out, err := provider.Complete(context.Background(), Request{
		System:      "gere SQL",
		Prompt:      "quantas autuações?",
		Temperature: 0,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
}

func TestGroqZeroTemperatureIsSentOnTheWire(t *testing.T) {
	var body []byte
	provider := newGroqTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var err error
		body, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "SELECT 1"}},
			},
		})
	})

	_, err := provider.Complete(context.Background(), Request{
		Prompt:      "quantas autuações?",
		Temperature: 0,
		MaxTokens:   512,
	})
	require.NoError(t, err)

	// Temperature 0 must not be omitted: an absent field makes the endpoint
	// fall back to its default of 1 and generation stops being repeatable.
	assert.Contains(t, string(body), `"temperature"`)

	var payload struct {
		Temperature *float32 `json:"temperature"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NotNil(t, payload.Temperature)
	assert.Less(t, *payload.Temperature, float32(1e-6))
}

func TestGroqNoChoices(t *testing.T) {
	provider := newGroqTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := provider.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Completion provider unavailable")
}
