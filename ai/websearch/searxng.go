package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const snippetMaxChars = 200

// SearchResult is one SearXNG hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearxClient queries a SearXNG instance's JSON API.
type SearxClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSearxClient creates a client. Returns nil for an empty base URL;
// callers treat a nil client as search disabled.
func NewSearxClient(baseURL string, timeout time.Duration) *SearxClient {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SearxClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search runs a query and returns up to limit results.
func (c *SearxClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if c == nil {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&pageno=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed: status %d", resp.StatusCode)
	}

	var body struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if limit > 0 && len(body.Results) > limit {
		body.Results = body.Results[:limit]
	}
	return body.Results, nil
}

// FormatResults renders search hits as a numbered block for the model.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		snippet := []rune(squeezeWhitespace(r.Content))
		if len(snippet) > snippetMaxChars {
			snippet = snippet[:snippetMaxChars]
		}
		fmt.Fprintf(&b, "%d. %s\n链接: %s\n摘要: %s\n", i+1, r.Title, r.URL, string(snippet))
	}
	return strings.TrimRight(b.String(), "\n")
}
