// Package websearch enriches replies with webpage content and SearXNG
// search results.
package websearch

import "regexp"

var urlRE = regexp.MustCompile(`https?://[^\s\)\]\}]+`)

// ExtractURLs returns the distinct URLs found in text, in order.
func ExtractURLs(text string) []string {
	matches := urlRE.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var urls []string
	for _, u := range matches {
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}
