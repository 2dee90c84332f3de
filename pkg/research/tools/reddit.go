package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mikeboe/search-agent/pkg/research"
)

var ErrMalformedThread = errors.New("malformed reddit thread")

type redditThing struct {
	Kind string `json:"kind"`
	Data struct {
		Title    *string `json:"title"`
		Selftext string  `json:"selftext"`
		Body     *string `json:"body"`
	} `json:"data"`
}

type redditListing struct {
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

// RedditFetcher reads threads through Reddit's public JSON view (<thread>.json).
type RedditFetcher struct {
	UserAgent string
	// CommentLimit is the last comment index read; index CommentLimit itself is included,
	// so the default of 5 yields up to six comments.
	CommentLimit int
	// Concurrency bounds parallel requests.
	Concurrency int
	client      *http.Client
}

func NewRedditFetcher(userAgent string, commentLimit int, timeout time.Duration) *RedditFetcher {
	return &RedditFetcher{
		UserAgent:    userAgent,
		CommentLimit: commentLimit,
		Concurrency:  3,
		client:       &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves every link and keeps input order. Links that fail are logged and skipped.
func (f *RedditFetcher) Fetch(ctx context.Context, links []string) []research.ContentBlob {
	fetched := make([]*research.ContentBlob, len(links))

	var g errgroup.Group
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}
	for i, link := range links {
		g.Go(func() error {
			blob, err := f.fetchThread(ctx, link)
			if err != nil {
				research.LoggerFrom(ctx).Warn("Failed to fetch thread", "url", link, "error", err)
				return nil
			}
			fetched[i] = blob
			return nil
		})
	}
	_ = g.Wait()

	blobs := make([]research.ContentBlob, 0, len(links))
	for _, b := range fetched {
		if b != nil {
			blobs = append(blobs, *b)
		}
	}
	return blobs
}

func jsonURL(link string) string {
	return strings.TrimRight(link, "/") + ".json"
}

func (f *RedditFetcher) fetchThread(ctx context.Context, link string) (*research.ContentBlob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL(link), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	blob, err := parseThread(body, f.CommentLimit)
	if err != nil {
		return nil, err
	}
	blob.Link = link
	return blob, nil
}

// parseThread reads the [post listing, comment listing] pair.
func parseThread(body []byte, commentLimit int) (*research.ContentBlob, error) {
	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedThread, err)
	}
	if len(listings) < 2 || len(listings[0].Data.Children) == 0 {
		return nil, ErrMalformedThread
	}

	post := listings[0].Data.Children[0].Data
	title := "No Title"
	if post.Title != nil {
		title = *post.Title
	}

	comments := []string{}
	for i, c := range listings[1].Data.Children {
		if i > commentLimit {
			break
		}
		// "more" placeholders carry no body
		if c.Data.Body != nil {
			comments = append(comments, *c.Data.Body)
		}
	}

	return &research.ContentBlob{
		Title:    title,
		Body:     post.Selftext,
		Comments: comments,
	}, nil
}
