package websearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxContentChars  = 5000
	truncationSuffix = "...[内容已截断]"
	fetchUserAgent   = "Mozilla/5.0 (compatible; groupmate-bot/1.0)"
)

// mainContentSelectors are tried in order; the first non-empty match
// wins, with <body> as the fallback.
var mainContentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".content",
	".main-content",
}

// Fetcher downloads webpages and extracts their readable main content.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// FetchMainContent downloads url and returns its main text, truncated to
// a model-friendly length.
func (f *Fetcher) FetchMainContent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}
	doc.Find("script, style, meta, link, noscript").Remove()

	var node *goquery.Selection
	for _, selector := range mainContentSelectors {
		if s := doc.Find(selector).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			node = s
			break
		}
	}
	if node == nil {
		node = doc.Find("body")
	}

	text := squeezeWhitespace(node.Text())
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", url)
	}
	if len([]rune(text)) > maxContentChars {
		text = string([]rune(text)[:maxContentChars]) + truncationSuffix
	}
	return text, nil
}

func squeezeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
