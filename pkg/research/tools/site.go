package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/search-agent/pkg/research"
)

// SiteSearch restricts another provider to one site with a "site:" filter.
type SiteSearch struct {
	Searcher research.SearchProvider
	Site     string
}

func (s *SiteSearch) Search(ctx context.Context, query string, limit int) ([]research.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return s.Searcher.Search(ctx, fmt.Sprintf("site:%s %s", s.Site, query), limit)
}
