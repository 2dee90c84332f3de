package research

import "fmt"

// Slot holds a value that is written at most once per run.
type Slot[T any] struct {
	value T
	set   bool
}

// Set stores v. Writing a slot twice is a wiring bug and panics.
func (s *Slot[T]) Set(v T) {
	if s.set {
		panic(fmt.Sprintf("research: slot of type %T written twice", v))
	}
	s.value = v
	s.set = true
}

func (s *Slot[T]) Get() (T, bool) {
	return s.value, s.set
}

// Or returns the stored value, or def when the slot was never written.
func (s *Slot[T]) Or(def T) T {
	if !s.set {
		return def
	}
	return s.value
}

func (s *Slot[T]) IsSet() bool {
	return s.set
}

// ExecutionState is shared by every node of one run. Each slot has exactly one writer node
// and is only read by nodes that declare that writer as a dependency.
type ExecutionState struct {
	Query string

	GeneralResults   Slot[[]SearchResult]
	SecondaryResults Slot[[]SearchResult]
	ForumResults     Slot[[]SearchResult]
	SelectedLinks    Slot[[]string]
	ForumContent     Slot[[]ContentBlob]

	GeneralAnalysis   Slot[string]
	SecondaryAnalysis Slot[string]
	ForumAnalysis     Slot[string]
	Conflicts         Slot[ConflictReport]
	FinalAnswer       Slot[string]
}

func NewState(query string) *ExecutionState {
	return &ExecutionState{Query: query}
}

// Snapshot is the JSON view of a finished state.
type Snapshot struct {
	Query             string         `json:"query"`
	GeneralResults    []SearchResult `json:"google_results"`
	SecondaryResults  []SearchResult `json:"duckduckgo_results"`
	ForumResults      []SearchResult `json:"reddit_results"`
	SelectedLinks     []string       `json:"selected_reddit_urls"`
	ForumContent      []string       `json:"reddit_post_data"`
	GeneralAnalysis   string         `json:"google_analysis"`
	SecondaryAnalysis string         `json:"duckduckgo_analysis"`
	ForumAnalysis     string         `json:"reddit_analysis"`
	Conflicts         ConflictReport `json:"conflict_report"`
	FinalAnswer       string         `json:"final_answer"`
}

func (s *ExecutionState) Snapshot() Snapshot {
	return Snapshot{
		Query:             s.Query,
		GeneralResults:    nonNil(s.GeneralResults.Or(nil)),
		SecondaryResults:  nonNil(s.SecondaryResults.Or(nil)),
		ForumResults:      nonNil(s.ForumResults.Or(nil)),
		SelectedLinks:     nonNil(s.SelectedLinks.Or(nil)),
		ForumContent:      renderBlobs(s.ForumContent.Or(nil)),
		GeneralAnalysis:   s.GeneralAnalysis.Or(""),
		SecondaryAnalysis: s.SecondaryAnalysis.Or(""),
		ForumAnalysis:     s.ForumAnalysis.Or(""),
		Conflicts:         s.Conflicts.Or(ConflictReport{}).Normalized(),
		FinalAnswer:       s.FinalAnswer.Or(""),
	}
}

func renderBlobs(blobs []ContentBlob) []string {
	out := make([]string, 0, len(blobs))
	for _, b := range blobs {
		out = append(out, b.String())
	}
	return out
}
