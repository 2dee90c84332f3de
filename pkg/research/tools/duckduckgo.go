package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mikeboe/search-agent/pkg/research"
)

const duckDuckGoLiteEndpoint = "https://lite.duckduckgo.com/lite/"

var (
	// <a rel="nofollow" href="URL" class='result-link'>TITLE</a>, attributes in either order
	ddgLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	ddgLinkPatternAlt = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	anyLinkPattern    = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
)

// DuckDuckGo scrapes DuckDuckGo's lite HTML interface.
type DuckDuckGo struct {
	BaseURL   string
	UserAgent string
	client    *http.Client
}

func NewDuckDuckGo(userAgent string, timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		BaseURL:   duckDuckGoLiteEndpoint,
		UserAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Search posts the query to the lite page and parses up to limit results.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	formData := url.Values{}
	formData.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	results := parseLiteResults(string(body), limit)
	research.LoggerFrom(ctx).Debug("DuckDuckGo search complete", "query", query, "count", len(results))
	return results, nil
}

// parseLiteResults extracts results from the lite HTML. Links and snippets appear in the
// same order, so they are paired by position.
func parseLiteResults(page string, limit int) []research.SearchResult {
	results := []research.SearchResult{}

	matches := ddgLinkPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = ddgLinkPatternAlt.FindAllStringSubmatch(page, -1)
	}
	snippets := ddgSnippetPattern.FindAllStringSubmatch(page, -1)

	for i, match := range matches {
		link := strings.TrimSpace(html.UnescapeString(match[1]))
		title := cleanHTML(match[2])
		if link == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}

		results = append(results, research.SearchResult{
			Title:   title,
			Link:    link,
			Snippet: snippet,
		})
		if len(results) >= limit {
			break
		}
	}

	if len(results) == 0 {
		results = fallbackParse(page, limit)
	}
	return results
}

// fallbackParse picks external links when the result-link markup is missing.
func fallbackParse(page string, limit int) []research.SearchResult {
	results := []research.SearchResult{}
	seen := make(map[string]bool)

	for _, match := range anyLinkPattern.FindAllStringSubmatch(page, -1) {
		link := strings.TrimSpace(html.UnescapeString(match[1]))
		title := cleanHTML(match[2])

		if strings.Contains(link, "duckduckgo.com") ||
			strings.HasPrefix(link, "/") ||
			strings.HasPrefix(link, "#") ||
			strings.HasPrefix(link, "javascript:") {
			continue
		}
		// navigation links
		if len(title) < 5 {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true

		results = append(results, research.SearchResult{Title: title, Link: link})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// cleanHTML strips tags and decodes entities
func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
