package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikeboe/search-agent/pkg/llm"
)

// Node names of the research graph.
const (
	NodeGeneralSearch    = "generalSearch"
	NodeSecondarySearch  = "secondarySearch"
	NodeForumSearch      = "forumSearch"
	NodeForumSelect      = "forumSelect"
	NodeForumFetch       = "forumFetch"
	NodeAnalyzeGeneral   = "analyzeGeneral"
	NodeAnalyzeSecondary = "analyzeSecondary"
	NodeAnalyzeForum     = "analyzeForum"
	NodeDetectConflict   = "detectConflict"
	NodeSynthesize       = "synthesize"
)

var (
	ErrNoProvider      = errors.New("no provider configured")
	ErrNoValidLinks    = errors.New("selection returned no known links")
	ErrEmptyGeneration = errors.New("generation returned empty text")
)

// nodes declares the static node table. Each node owns exactly one slot of ExecutionState.
func (e *Engine) nodes() []Node {
	return []Node{
		&step[[]SearchResult]{
			name:     NodeGeneralSearch,
			slot:     func(st *ExecutionState) *Slot[[]SearchResult] { return &st.GeneralResults },
			compute:  e.searchWith(func() SearchProvider { return e.Providers.General }),
			fallback: func(*ExecutionState) []SearchResult { return []SearchResult{} },
		},
		&step[[]SearchResult]{
			name:     NodeSecondarySearch,
			slot:     func(st *ExecutionState) *Slot[[]SearchResult] { return &st.SecondaryResults },
			compute:  e.searchWith(func() SearchProvider { return e.Providers.Secondary }),
			fallback: func(*ExecutionState) []SearchResult { return []SearchResult{} },
		},
		&step[[]SearchResult]{
			name:     NodeForumSearch,
			slot:     func(st *ExecutionState) *Slot[[]SearchResult] { return &st.ForumResults },
			compute:  e.searchWith(func() SearchProvider { return e.Providers.Forum }),
			fallback: func(*ExecutionState) []SearchResult { return []SearchResult{} },
		},
		&step[[]string]{
			name: NodeForumSelect,
			deps: []string{NodeForumSearch},
			slot: func(st *ExecutionState) *Slot[[]string] { return &st.SelectedLinks },
			compute: func(ctx context.Context, st *ExecutionState) ([]string, error) {
				return e.selectThreads(ctx, st.Query, st.ForumResults.Or(nil))
			},
			fallback: func(st *ExecutionState) []string {
				return firstLinks(st.ForumResults.Or(nil), e.Config.SelectCount)
			},
		},
		&step[[]ContentBlob]{
			name: NodeForumFetch,
			deps: []string{NodeForumSelect},
			slot: func(st *ExecutionState) *Slot[[]ContentBlob] { return &st.ForumContent },
			compute: func(ctx context.Context, st *ExecutionState) ([]ContentBlob, error) {
				return e.fetchThreads(ctx, st.SelectedLinks.Or(nil))
			},
			fallback: func(*ExecutionState) []ContentBlob { return []ContentBlob{} },
		},
		&step[string]{
			name: NodeAnalyzeGeneral,
			deps: []string{NodeGeneralSearch},
			slot: func(st *ExecutionState) *Slot[string] { return &st.GeneralAnalysis },
			compute: func(ctx context.Context, st *ExecutionState) (string, error) {
				return e.generateText(ctx, generalAnalysisMessages(st.Query, formatResults(st.GeneralResults.Or(nil))))
			},
			fallback: func(*ExecutionState) string { return NoGeneralData },
		},
		&step[string]{
			name: NodeAnalyzeSecondary,
			deps: []string{NodeSecondarySearch},
			slot: func(st *ExecutionState) *Slot[string] { return &st.SecondaryAnalysis },
			compute: func(ctx context.Context, st *ExecutionState) (string, error) {
				return e.generateText(ctx, secondaryAnalysisMessages(st.Query, formatResults(st.SecondaryResults.Or(nil))))
			},
			fallback: func(*ExecutionState) string { return NoSecondaryData },
		},
		&step[string]{
			name: NodeAnalyzeForum,
			deps: []string{NodeForumFetch},
			slot: func(st *ExecutionState) *Slot[string] { return &st.ForumAnalysis },
			compute: func(ctx context.Context, st *ExecutionState) (string, error) {
				return e.analyzeForum(ctx, st.Query, st.ForumContent.Or(nil))
			},
			fallback: func(*ExecutionState) string { return NoForumDiscussions },
		},
		&step[ConflictReport]{
			name: NodeDetectConflict,
			deps: []string{NodeAnalyzeGeneral, NodeAnalyzeForum},
			slot: func(st *ExecutionState) *Slot[ConflictReport] { return &st.Conflicts },
			compute: func(ctx context.Context, st *ExecutionState) (ConflictReport, error) {
				return e.detectConflicts(ctx, st.GeneralResults.Or(nil), renderBlobs(st.ForumContent.Or(nil)))
			},
			fallback: func(*ExecutionState) ConflictReport { return ConflictReport{} },
		},
		&step[string]{
			name: NodeSynthesize,
			deps: []string{NodeDetectConflict, NodeAnalyzeSecondary},
			slot: func(st *ExecutionState) *Slot[string] { return &st.FinalAnswer },
			compute: func(ctx context.Context, st *ExecutionState) (string, error) {
				return e.synthesize(ctx, st), nil
			},
			fallback: func(*ExecutionState) string { return synthesisErrorPrefix + "synthesis failed" },
		},
	}
}

func (e *Engine) searchWith(provider func() SearchProvider) func(context.Context, *ExecutionState) ([]SearchResult, error) {
	return func(ctx context.Context, st *ExecutionState) ([]SearchResult, error) {
		return e.search(ctx, provider(), st.Query)
	}
}

func (e *Engine) search(ctx context.Context, p SearchProvider, query string) ([]SearchResult, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	results, err := p.Search(ctx, query, e.Config.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if results == nil {
		results = []SearchResult{}
	}
	e.logger(ctx).Info("Search complete", "count", len(results))
	return results, nil
}

type threadSelection struct {
	SelectedURLs []string `json:"selected_urls"`
}

// selectThreads asks the model for the best K threads. The answer is restricted to links
// that appear in results, deduplicated and capped at K.
func (e *Engine) selectThreads(ctx context.Context, query string, results []SearchResult) ([]string, error) {
	if len(results) == 0 {
		return []string{}, nil
	}
	k := e.Config.SelectCount

	var sel threadSelection
	if err := e.Generator.GenerateStructured(ctx, selectionMessages(query, formatThreadList(results), k), selectionSchema(k), &sel); err != nil {
		return nil, fmt.Errorf("thread selection: %w", err)
	}

	known := make(map[string]string, len(results))
	for _, r := range results {
		known[linkKey(r.Link)] = r.Link
	}
	seen := make(map[string]bool, k)
	selected := make([]string, 0, k)
	for _, u := range sel.SelectedURLs {
		link, ok := known[linkKey(u)]
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		selected = append(selected, link)
		if len(selected) == k {
			break
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoValidLinks
	}
	e.logger(ctx).Info("Selected threads", "urls", selected)
	return selected, nil
}

func linkKey(link string) string {
	return strings.TrimRight(strings.TrimSpace(link), "/")
}

func firstLinks(results []SearchResult, k int) []string {
	links := make([]string, 0, k)
	for _, r := range results {
		if len(links) == k {
			break
		}
		links = append(links, r.Link)
	}
	return links
}

func (e *Engine) fetchThreads(ctx context.Context, links []string) ([]ContentBlob, error) {
	if len(links) == 0 {
		return []ContentBlob{}, nil
	}
	if e.Providers.Fetcher == nil {
		return nil, ErrNoProvider
	}
	blobs := e.Providers.Fetcher.Fetch(ctx, links)
	if blobs == nil {
		blobs = []ContentBlob{}
	}
	e.logger(ctx).Info("Fetched threads", "requested", len(links), "fetched", len(blobs))
	return blobs, nil
}

func (e *Engine) analyzeForum(ctx context.Context, query string, blobs []ContentBlob) (string, error) {
	if len(blobs) == 0 {
		return NoForumThreads, nil
	}
	posts := make([]string, 0, len(blobs))
	for _, b := range blobs {
		// the budget applies to the post body; title and comments are kept whole
		b.Body = e.splitter.Head(b.Body)
		posts = append(posts, b.String())
	}
	return e.generateText(ctx, forumAnalysisMessages(query, strings.Join(posts, "\n\n")))
}

func (e *Engine) generateText(ctx context.Context, messages []llm.Message) (string, error) {
	text, err := e.Generator.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// detectConflicts compares general results with forum texts. Missing input on either side
// skips the comparison and yields the zero report.
func (e *Engine) detectConflicts(ctx context.Context, general []SearchResult, forum []string) (ConflictReport, error) {
	if len(general) == 0 || len(forum) == 0 {
		return ConflictReport{}, nil
	}
	if len(forum) > e.Config.ConflictForumLimit {
		forum = forum[:e.Config.ConflictForumLimit]
	}

	var report ConflictReport
	if err := e.Generator.GenerateStructured(ctx, conflictMessages(formatBullets(general), strings.Join(forum, "\n")), conflictSchema, &report); err != nil {
		return ConflictReport{}, fmt.Errorf("conflict detection: %w", err)
	}
	return report.Normalized(), nil
}

// synthesize never fails: a generation error becomes the answer text.
func (e *Engine) synthesize(ctx context.Context, st *ExecutionState) string {
	msgs := synthesisMessages(
		st.Query,
		st.GeneralAnalysis.Or(NoGeneralData),
		st.SecondaryAnalysis.Or(NoSecondaryData),
		st.ForumAnalysis.Or(NoForumDiscussions),
		st.Conflicts.Or(ConflictReport{}),
	)
	answer, err := e.generateText(ctx, msgs)
	if err != nil {
		e.logger(ctx).Error("Synthesis failed", "error", err)
		return synthesisErrorPrefix + err.Error()
	}
	return answer
}
