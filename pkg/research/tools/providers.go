package tools

import (
	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/research"
)

// NewProviders wires the production adapters: SerpAPI for general and forum search,
// DuckDuckGo as the secondary source and the Reddit JSON fetcher.
func NewProviders(cfg *config.Config) research.Providers {
	google := NewSerpAPI(cfg.SerpApiKey, cfg.RequestTimeout)
	return research.Providers{
		General:   google,
		Secondary: NewDuckDuckGo(cfg.UserAgent, cfg.RequestTimeout),
		Forum:     &SiteSearch{Searcher: google, Site: cfg.ForumSite},
		Fetcher:   NewRedditFetcher(cfg.UserAgent, cfg.CommentLimit, cfg.RequestTimeout),
	}
}
