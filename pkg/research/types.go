package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/search-agent/pkg/config"
)

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ContentBlob is the scraped text of one forum thread.
type ContentBlob struct {
	Link     string   `json:"link"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Comments []string `json:"comments"`
}

// String renders the blob the way it is fed to the model.
func (b ContentBlob) String() string {
	return fmt.Sprintf("Title: %s\nPost: %s\nComments: %s", b.Title, b.Body, strings.Join(b.Comments, " | "))
}

// ConflictReport compares the general (official) source with the forum (community) source.
// The zero value means conflict detection was skipped.
type ConflictReport struct {
	Agreements        []string `json:"agreements"`
	Conflicts         []string `json:"conflicts"`
	UniqueToGeneral   []string `json:"unique_google_insights"`
	UniqueToCommunity []string `json:"unique_reddit_insights"`
	Summary           string   `json:"final_conflict_report"`
}

func (r ConflictReport) IsZero() bool {
	return len(r.Agreements) == 0 && len(r.Conflicts) == 0 &&
		len(r.UniqueToGeneral) == 0 && len(r.UniqueToCommunity) == 0 &&
		strings.TrimSpace(r.Summary) == ""
}

// Normalized replaces nil lists with empty ones so the report encodes as arrays.
func (r ConflictReport) Normalized() ConflictReport {
	r.Agreements = nonNil(r.Agreements)
	r.Conflicts = nonNil(r.Conflicts)
	r.UniqueToGeneral = nonNil(r.UniqueToGeneral)
	r.UniqueToCommunity = nonNil(r.UniqueToCommunity)
	return r
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SearchProvider executes a query against one backend. Results keep provider ranking.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Fetcher retrieves forum threads. It is best effort: links that fail are dropped.
type Fetcher interface {
	Fetch(ctx context.Context, links []string) []ContentBlob
}

// Providers groups the source adapters used by the pipeline.
type Providers struct {
	General   SearchProvider
	Secondary SearchProvider
	Forum     SearchProvider
	Fetcher   Fetcher
}

// Config holds runtime configuration
type Config struct {
	ResultLimit        int
	SelectCount        int
	ConflictForumLimit int
	ChunkSize          int
	ChunkOverlap       int
}

// ConfigFrom picks the pipeline settings out of the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ResultLimit:        cfg.ResultLimit,
		SelectCount:        cfg.SelectCount,
		ConflictForumLimit: cfg.ConflictForumLimit,
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
	}
}

func (c Config) withDefaults() Config {
	if c.ResultLimit <= 0 {
		c.ResultLimit = 5
	}
	if c.SelectCount <= 0 {
		c.SelectCount = 3
	}
	if c.ConflictForumLimit <= 0 {
		c.ConflictForumLimit = 3
	}
	return c
}
