// internal/common/database/supabase.go
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"infraction-insights/internal/common/config"
)

// SupabaseClient talks to a PostgREST endpoint (Supabase REST API).
type SupabaseClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabase creates a PostgREST client for the configured project.
func NewSupabase(cfg config.SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: config.GetDuration(cfg.Timeout),
		},
	}
}

// SelectRange fetches one page of a table as a raw JSON array. columns is a
// PostgREST select expression; "*" fetches everything.
func (c *SupabaseClient) SelectRange(ctx context.Context, table, columns string, offset, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if columns == "" {
		columns = "*"
	}
	q.Set("select", columns)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase select failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase response read failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("supabase select returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return json.RawMessage(body), nil
}

// CountExact returns the exact row count of a table via a Prefer header.
func (c *SupabaseClient) CountExact(ctx context.Context, table string) (int, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?select=*&limit=1", c.baseURL, url.PathEscape(table))

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("supabase count failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Content-Range: 0-0/12345
	cr := resp.Header.Get("Content-Range")
	if i := strings.LastIndexByte(cr, '/'); i >= 0 {
		if n, err := strconv.Atoi(cr[i+1:]); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("supabase count: unparseable Content-Range %q", cr)
}

// CallProcedure invokes a PostgREST RPC function and returns the raw JSON
// response body.
func (c *SupabaseClient) CallProcedure(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase rpc %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase rpc response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("supabase rpc %s returned %d: %s", name, resp.StatusCode, truncate(string(body), 200))
	}

	return json.RawMessage(body), nil
}

// Ping checks the REST endpoint is reachable.
func (c *SupabaseClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("supabase ping returned %d", resp.StatusCode)
	}
	return nil
}

func (c *SupabaseClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
