package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mikeboe/search-agent/pkg/llm"
)

type stubSearch struct {
	results []SearchResult
	err     error
}

func (s stubSearch) Search(_ context.Context, _ string, limit int) ([]SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

// stubFetcher returns a blob for every link it knows and drops the rest.
type stubFetcher struct {
	mu    sync.Mutex
	blobs map[string]ContentBlob
	got   [][]string
}

func (f *stubFetcher) Fetch(_ context.Context, links []string) []ContentBlob {
	f.mu.Lock()
	f.got = append(f.got, links)
	f.mu.Unlock()
	var out []ContentBlob
	for _, l := range links {
		if b, ok := f.blobs[l]; ok {
			out = append(out, b)
		}
	}
	return out
}

// fakeGenerator answers by system prompt and counts calls.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	prompts  map[string]string
	texts    map[string]string
	err      error
	selected []string
	conflict *ConflictReport
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:   map[string]int{},
		prompts: map[string]string{},
		texts: map[string]string{
			systemGeneralAnalysis:   "general facts",
			systemSecondaryAnalysis: "secondary facts",
			systemForumAnalysis:     "community advice",
			systemSynthesis:         "final answer",
		},
	}
}

func (f *fakeGenerator) record(msgs []llm.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	system := msgs[0].Content
	f.calls[system]++
	f.prompts[system] = msgs[len(msgs)-1].Content
	return system
}

func (f *fakeGenerator) count(system string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[system]
}

func (f *fakeGenerator) prompt(system string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[system]
}

func (f *fakeGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	system := f.record(msgs)
	if f.err != nil {
		return "", f.err
	}
	return f.texts[system], nil
}

func (f *fakeGenerator) GenerateStructured(_ context.Context, msgs []llm.Message, _ *llm.Schema, out any) error {
	system := f.record(msgs)
	if f.err != nil {
		return f.err
	}
	switch v := out.(type) {
	case *threadSelection:
		if f.selected == nil {
			return llm.ErrSchema
		}
		v.SelectedURLs = f.selected
	case *ConflictReport:
		if f.conflict == nil {
			return llm.ErrSchema
		}
		*v = *f.conflict
	default:
		return fmt.Errorf("unexpected output type %T for %q", out, system)
	}
	return nil
}

func results(prefix string, n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{
			Title:   fmt.Sprintf("%s title %d", prefix, i),
			Link:    fmt.Sprintf("https://%s.example/%d", prefix, i),
			Snippet: fmt.Sprintf("%s snippet %d", prefix, i),
		}
	}
	return out
}

func forumResults(n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{
			Title:   fmt.Sprintf("thread %d", i),
			Link:    fmt.Sprintf("https://www.reddit.com/r/test/comments/%d/thread/", i),
			Snippet: "discussion",
		}
	}
	return out
}

func blobsFor(res []SearchResult) map[string]ContentBlob {
	out := make(map[string]ContentBlob, len(res))
	for _, r := range res {
		out[r.Link] = ContentBlob{Link: r.Link, Title: r.Title, Body: "body of " + r.Title, Comments: []string{"c1", "c2"}}
	}
	return out
}

type fixture struct {
	general, secondary, forum stubSearch
	fetcher                   *stubFetcher
	gen                       *fakeGenerator
}

func newFixture() *fixture {
	forum := forumResults(5)
	gen := newFakeGenerator()
	gen.selected = []string{forum[4].Link, forum[1].Link, forum[0].Link}
	gen.conflict = &ConflictReport{
		Agreements: []string{"both like it"},
		Conflicts:  []string{"price"},
		Summary:    "mostly aligned",
	}
	return &fixture{
		general:   stubSearch{results: results("google", 5)},
		secondary: stubSearch{results: results("ddg", 5)},
		forum:     stubSearch{results: forum},
		fetcher:   &stubFetcher{blobs: blobsFor(forum)},
		gen:       gen,
	}
}

func (f *fixture) engine(t *testing.T) *Engine {
	t.Helper()
	return f.engineWith(t, Config{})
}

func (f *fixture) engineWith(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, Providers{
		General:   f.general,
		Secondary: f.secondary,
		Forum:     f.forum,
		Fetcher:   f.fetcher,
	}, f.gen)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Logger = discardLogger()
	return e
}

func execute(t *testing.T, e *Engine, q string) *Report {
	t.Helper()
	report, err := e.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return report
}

func TestGraphTopology(t *testing.T) {
	e := newFixture().engine(t)
	want := map[string][]string{
		NodeGeneralSearch:    {},
		NodeSecondarySearch:  {},
		NodeForumSearch:      {},
		NodeForumSelect:      {NodeForumSearch},
		NodeForumFetch:       {NodeForumSelect},
		NodeAnalyzeGeneral:   {NodeGeneralSearch},
		NodeAnalyzeSecondary: {NodeSecondarySearch},
		NodeAnalyzeForum:     {NodeForumFetch},
		NodeDetectConflict:   {NodeAnalyzeGeneral, NodeAnalyzeForum},
		NodeSynthesize:       {NodeDetectConflict, NodeAnalyzeSecondary},
	}
	if diff := cmp.Diff(want, e.Graph().Edges(), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("topology mismatch (-want +got):\n%s", diff)
	}
	if order := e.Graph().Order(); order[len(order)-1] != NodeSynthesize {
		t.Errorf("last node = %s, want %s", order[len(order)-1], NodeSynthesize)
	}
}

func assertAnalysesSet(t *testing.T, st *ExecutionState) {
	t.Helper()
	for name, slot := range map[string]*Slot[string]{
		"general":   &st.GeneralAnalysis,
		"secondary": &st.SecondaryAnalysis,
		"forum":     &st.ForumAnalysis,
		"answer":    &st.FinalAnswer,
	} {
		v, ok := slot.Get()
		if !ok || strings.TrimSpace(v) == "" {
			t.Errorf("%s analysis is unset or empty", name)
		}
	}
}

func TestScenarioAllSourcesSucceed(t *testing.T) {
	f := newFixture()
	report := execute(t, f.engine(t), "best running shoes")
	st := report.State

	assertAnalysesSet(t, st)
	if got := report.Answer(); got != "final answer" {
		t.Errorf("answer = %q", got)
	}
	for _, res := range report.Trace {
		if res.FellBack {
			t.Errorf("node %s fell back: %v", res.Node, res.Err)
		}
	}

	wantLinks := f.gen.selected
	if diff := cmp.Diff(wantLinks, st.SelectedLinks.Or(nil)); diff != "" {
		t.Errorf("selected links mismatch (-want +got):\n%s", diff)
	}
	if n := len(st.ForumContent.Or(nil)); n != 3 {
		t.Errorf("forum content has %d blobs, want 3", n)
	}

	synth := f.gen.prompt(systemSynthesis)
	for _, want := range []string{"general facts", "secondary facts", "community advice", "--- CONFLICT REPORT ---", "mostly aligned"} {
		if !strings.Contains(synth, want) {
			t.Errorf("synthesis prompt missing %q", want)
		}
	}
	if n := f.gen.count(systemConflict); n != 1 {
		t.Errorf("conflict generation called %d times, want 1", n)
	}
}

func TestScenarioNoForumResults(t *testing.T) {
	f := newFixture()
	f.forum = stubSearch{}
	report := execute(t, f.engine(t), "obscure question")
	st := report.State

	if got := st.SelectedLinks.Or(nil); got == nil || len(got) != 0 {
		t.Errorf("selected links = %v, want empty", got)
	}
	if got := st.ForumContent.Or(nil); got == nil || len(got) != 0 {
		t.Errorf("forum content = %v, want empty", got)
	}
	if got := st.ForumAnalysis.Or(""); got != NoForumThreads {
		t.Errorf("forum analysis = %q, want placeholder", got)
	}
	if !st.Conflicts.Or(ConflictReport{Summary: "unset"}).IsZero() {
		t.Error("conflict report is not zero")
	}
	for _, system := range []string{systemSelection, systemForumAnalysis, systemConflict} {
		if n := f.gen.count(system); n != 0 {
			t.Errorf("generation for %q called %d times, want 0", system, n)
		}
	}
	if strings.Contains(f.gen.prompt(systemSynthesis), "CONFLICT REPORT") {
		t.Error("synthesis prompt has a conflict section for a zero report")
	}
}

func TestScenarioGeneralSearchFails(t *testing.T) {
	f := newFixture()
	f.general = stubSearch{err: errors.New("connection refused")}
	report := execute(t, f.engine(t), "q")
	st := report.State

	got, ok := st.GeneralResults.Get()
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("general results = %v (set %v), want empty fallback", got, ok)
	}
	if n := f.gen.count(systemGeneralAnalysis); n != 1 {
		t.Errorf("general analysis called %d times, want 1", n)
	}
	if n := f.gen.count(systemConflict); n != 0 {
		t.Errorf("conflict generation called %d times, want 0", n)
	}
	assertAnalysesSet(t, st)
	if report.Answer() != "final answer" {
		t.Errorf("answer = %q", report.Answer())
	}

	var fellBack []string
	for _, res := range report.Trace {
		if res.FellBack {
			fellBack = append(fellBack, res.Node)
		}
	}
	if diff := cmp.Diff([]string{NodeGeneralSearch}, fellBack); diff != "" {
		t.Errorf("fallback nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioGenerationUnavailable(t *testing.T) {
	f := newFixture()
	e, err := NewEngine(Config{}, Providers{
		General: f.general, Secondary: f.secondary, Forum: f.forum, Fetcher: f.fetcher,
	}, llm.Unavailable{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Logger = discardLogger()

	report := execute(t, e, "q")
	st := report.State

	want := map[string]string{
		"general":   NoGeneralData,
		"secondary": NoSecondaryData,
		"forum":     NoForumDiscussions,
	}
	got := map[string]string{
		"general":   st.GeneralAnalysis.Or(""),
		"secondary": st.SecondaryAnalysis.Or(""),
		"forum":     st.ForumAnalysis.Or(""),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("analyses mismatch (-want +got):\n%s", diff)
	}
	if !st.Conflicts.Or(ConflictReport{}).IsZero() {
		t.Error("conflict report is not zero")
	}
	// selection falls back to the first three links in provider order
	if diff := cmp.Diff(firstLinks(f.forum.results, 3), st.SelectedLinks.Or(nil)); diff != "" {
		t.Errorf("selected links mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(report.Answer(), "Error generating answer: ") {
		t.Errorf("answer = %q, want embedded error", report.Answer())
	}
}

func TestSynthesisBlankAnswer(t *testing.T) {
	f := newFixture()
	f.gen.texts[systemSynthesis] = "  \n "
	report := execute(t, f.engine(t), "q")

	answer := report.Answer()
	if !strings.HasPrefix(answer, "Error generating answer: ") || !strings.Contains(answer, ErrEmptyGeneration.Error()) {
		t.Errorf("answer = %q, want embedded empty-generation error", answer)
	}
}

func TestForumAnalysisBudgetKeepsThreadContent(t *testing.T) {
	f := newFixture()
	body := strings.Repeat("lorem ", 800)
	for link, b := range f.fetcher.blobs {
		b.Body = body
		b.Comments = []string{"comment about " + b.Title}
		f.fetcher.blobs[link] = b
	}
	report := execute(t, f.engineWith(t, Config{ChunkSize: 4000, ChunkOverlap: 200}), "q")

	if got := report.State.ForumAnalysis.Or(""); got != "community advice" {
		t.Errorf("forum analysis = %q", got)
	}
	prompt := f.gen.prompt(systemForumAnalysis)
	for _, link := range f.gen.selected {
		title := f.fetcher.blobs[link].Title
		for _, want := range []string{"Title: " + title + "\nPost: lorem lorem", "Comments: comment about " + title} {
			if !strings.Contains(prompt, want) {
				t.Errorf("forum prompt missing %q", want)
			}
		}
	}
	perThread := strings.Count(prompt, "lorem") / len(f.gen.selected)
	if perThread >= 800 || perThread < 300 {
		t.Errorf("forum prompt keeps %d words of each post, want a truncated body of at least 300", perThread)
	}
}

func TestSelectionSchemaFollowsSelectCount(t *testing.T) {
	desc := selectionSchema(5).Properties["selected_urls"].Description
	if !strings.Contains(desc, "5 best") {
		t.Errorf("description = %q, want the configured count", desc)
	}
}

func TestSelectThreads(t *testing.T) {
	forum := forumResults(6)
	tests := []struct {
		name     string
		selected []string
		want     []string
	}{
		{
			name:     "model order kept",
			selected: []string{forum[2].Link, forum[0].Link},
			want:     []string{forum[2].Link, forum[0].Link},
		},
		{
			name:     "unknown links dropped",
			selected: []string{"https://evil.example/x", forum[3].Link},
			want:     []string{forum[3].Link},
		},
		{
			name:     "duplicates and trailing slash",
			selected: []string{forum[1].Link, strings.TrimSuffix(forum[1].Link, "/"), forum[5].Link},
			want:     []string{forum[1].Link, forum[5].Link},
		},
		{
			name:     "capped at three",
			selected: []string{forum[5].Link, forum[4].Link, forum[3].Link, forum[2].Link},
			want:     []string{forum[5].Link, forum[4].Link, forum[3].Link},
		},
		{
			name:     "nothing valid falls back to first three",
			selected: []string{"https://evil.example/x"},
			want:     []string{forum[0].Link, forum[1].Link, forum[2].Link},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.forum = stubSearch{results: forum}
			f.gen.selected = tt.selected
			report := execute(t, f.engine(t), "q")

			got := report.State.SelectedLinks.Or(nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selected links mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchDropsFailedLinks(t *testing.T) {
	f := newFixture()
	forum := f.forum.results
	delete(f.fetcher.blobs, forum[1].Link)
	f.gen.selected = []string{forum[0].Link, forum[1].Link, forum[2].Link}

	st := execute(t, f.engine(t), "q").State
	var got []string
	for _, b := range st.ForumContent.Or(nil) {
		got = append(got, b.Link)
	}
	if diff := cmp.Diff([]string{forum[0].Link, forum[2].Link}, got); diff != "" {
		t.Errorf("fetched links mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectConflictsUsesFirstThreeThreads(t *testing.T) {
	f := newFixture()
	e := f.engine(t)
	forum := []string{"thread-A", "thread-B", "thread-C", "thread-D", "thread-E"}

	report, err := e.DetectConflicts(context.Background(), results("google", 2), forum)
	if err != nil {
		t.Fatalf("DetectConflicts: %v", err)
	}
	if report.Summary != "mostly aligned" {
		t.Errorf("summary = %q", report.Summary)
	}
	if report.UniqueToGeneral == nil || report.UniqueToCommunity == nil {
		t.Error("report has nil lists")
	}

	prompt := f.gen.prompt(systemConflict)
	for _, want := range []string{"thread-A", "thread-B", "thread-C", "- google title 0: google snippet 0"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, unwanted := range []string{"thread-D", "thread-E"} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("prompt contains %q beyond the first three threads", unwanted)
		}
	}
}

func TestDetectConflictsEmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		general []SearchResult
		forum   []string
	}{
		{name: "both empty"},
		{name: "no forum", general: results("google", 2)},
		{name: "no general", forum: []string{"thread"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			report, err := f.engine(t).DetectConflicts(context.Background(), tt.general, tt.forum)
			if err != nil {
				t.Fatalf("DetectConflicts: %v", err)
			}
			if !report.IsZero() {
				t.Errorf("report = %+v, want zero", report)
			}
			if n := f.gen.count(systemConflict); n != 0 {
				t.Errorf("generation called %d times, want 0", n)
			}
		})
	}
}

func TestDetectConflictsReportsFailure(t *testing.T) {
	f := newFixture()
	f.gen.conflict = nil
	_, err := f.engine(t).DetectConflicts(context.Background(), results("google", 1), []string{"thread"})
	if !errors.Is(err, llm.ErrSchema) {
		t.Errorf("error = %v, want ErrSchema", err)
	}
}

func TestExecuteIsRepeatable(t *testing.T) {
	f := newFixture()
	e := f.engine(t)
	first := execute(t, e, "q").State.Snapshot()
	second := execute(t, e, "q").State.Snapshot()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestSearchForum(t *testing.T) {
	f := newFixture()
	threads, content, err := f.engine(t).SearchForum(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchForum: %v", err)
	}
	if len(threads) != 5 {
		t.Errorf("threads = %d, want 5", len(threads))
	}
	if len(content) != 3 {
		t.Errorf("content = %d, want 3", len(content))
	}
	if n := f.gen.count(systemSelection); n != 0 {
		t.Errorf("selection generation called %d times, want 0", n)
	}
}

func TestRunRejectsEmptyQuestion(t *testing.T) {
	_, err := newFixture().engine(t).Run(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("Run() error = %v, want ErrEmptyQuestion", err)
	}
}

func TestContentBlobString(t *testing.T) {
	b := ContentBlob{Title: "T", Body: "B", Comments: []string{"one", "two"}}
	want := "Title: T\nPost: B\nComments: one | two"
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
