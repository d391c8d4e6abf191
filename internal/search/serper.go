// Package search queries the Serper web search API for questions outside
// the infraction dataset.
package search

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
	"infraction-insights/internal/common/logger"
)

// Snippet is one usable search hit.
type Snippet struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Content string `json:"content"`
}

// Results is what a search produced. NoResults distinguishes "nothing found"
// from a failed request.
type Results struct {
	Snippets  []Snippet `json:"snippets"`
	NoResults bool      `json:"noResults"`
}

// Client calls the Serper endpoint with Brazilian locale settings.
type Client struct {
	baseURL    string
	apiKey     string
	country    string
	language   string
	maxResults int
	httpClient *commonhttp.Client
	logger     logger.Logger
}

// NewClient builds a search client from config.
func NewClient(cfg config.APIsConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.WebSearch.BaseURL,
		apiKey:     cfg.WebSearch.APIKey,
		country:    cfg.WebSearch.Country,
		language:   cfg.WebSearch.Language,
		maxResults: cfg.WebSearch.MaxResults,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.WebSearch.Timeout)),
		logger:     log,
	}
}

type serperRequest struct {
	Q  string `json:"q"`
	GL string `json:"gl"`
	HL string `json:"hl"`
}

type serperResponse struct {
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs one query. Top organic snippets are preferred; the answer box
// is the fallback when organic results are empty.
func (c *Client) Search(ctx context.Context, query string) (*Results, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewSearchFailedError("no search api key configured")
	}

	payload, err := json.Marshal(serperRequest{Q: query, GL: c.country, HL: c.language})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewSearchFailedError(fmt.Sprintf("serper returned %d", resp.StatusCode))
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewSearchFailedError(err.Error())
	}

	results := &Results{}
	for _, hit := range parsed.Organic {
		if len(results.Snippets) >= c.maxResults {
			break
		}
		results.Snippets = append(results.Snippets, Snippet{
			Title:   hit.Title,
			Link:    hit.Link,
			Content: hit.Snippet,
		})
	}

	if len(results.Snippets) == 0 && parsed.AnswerBox != nil {
		content := parsed.AnswerBox.Answer
		if content == "" {
			content = parsed.AnswerBox.Snippet
		}
		if content != "" {
			results.Snippets = append(results.Snippets, Snippet{
				Title:   parsed.AnswerBox.Title,
				Link:    parsed.AnswerBox.Link,
				Content: content,
			})
		}
	}

	if len(results.Snippets) == 0 {
		results.NoResults = true
	}

	c.logger.Debug("web search completed", map[string]interface{}{
		"query":    query,
		"snippets": len(results.Snippets),
	})

	return results, nil
}

// Render flattens results into prose context for answer synthesis.
func (r *Results) Render() string {
	if r.NoResults {
		return "Nenhum resultado encontrado."
	}

	var b strings.Builder
	for i, s := range r.Snippets {
		fmt.Fprintf(&b, "%d. %s\n%s\nFonte: %s\n\n", i+1, s.Title, s.Content, s.Link)
	}
	return strings.TrimSpace(b.String())
}
