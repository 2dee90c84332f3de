package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/search-agent/pkg/research"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrMissingAPIKey = errors.New("SERP_API_KEY is not set")
)

// serpResponse holds the parts of a SerpAPI response we use
type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// SerpAPI searches Google through serpapi.com.
type SerpAPI struct {
	APIKey  string
	Engine  string
	BaseURL string
	client  *http.Client
}

func NewSerpAPI(apiKey string, timeout time.Duration) *SerpAPI {
	return &SerpAPI{
		APIKey:  apiKey,
		Engine:  "google",
		BaseURL: serpAPIEndpoint,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search queries SerpAPI and returns the organic results in ranking order.
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("engine", s.Engine)
	params.Set("q", query)
	params.Set("api_key", s.APIKey)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	research.LoggerFrom(ctx).Debug("Searching SerpAPI", "engine", s.Engine, "query", query)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed serpResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(body, &parsed)
		if parsed.Error != "" {
			return nil, fmt.Errorf("serpapi returned status %d: %s", resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if parsed.Error != "" && len(parsed.OrganicResults) == 0 {
		// "Google hasn't returned any results for this query." is reported as an error field.
		research.LoggerFrom(ctx).Info("SerpAPI returned no results", "query", query, "reason", parsed.Error)
		return []research.SearchResult{}, nil
	}

	results := make([]research.SearchResult, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if len(results) == limit {
			break
		}
		results = append(results, research.SearchResult{
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
		})
	}
	return results, nil
}
