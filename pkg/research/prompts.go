package research

import (
	"fmt"
	"strings"

	"github.com/mikeboe/search-agent/pkg/llm"
)

const (
	systemGeneralAnalysis   = "You are a research assistant. Analyze Google Search results and provide a factual summary."
	systemSecondaryAnalysis = "You are a research assistant. Analyze DuckDuckGo Search results."
	systemForumAnalysis     = "You are a forum analyst. Extract public sentiment, personal experiences, and unique advice from Reddit discussions."
	systemConflict          = "You are a Conflict Detector. Compare information from Google Search (Mainstream/Official) and Reddit (Community/Personal). Identify agreements, disagreements, and unique insights."
	systemSynthesis         = "You are a Lead Researcher. Combine reports from Google, DuckDuckGo, and Reddit into a single comprehensive answer."
	systemSelection         = "You are a research assistant selecting the Reddit threads most likely to answer a question."
)

// Placeholders keep every analysis field non-empty when a branch is degraded.
const (
	NoForumThreads        = "No relevant Reddit threads were found for this query."
	NoGeneralData         = "Google search returned no data."
	NoSecondaryData       = "DuckDuckGo search returned no data."
	NoForumDiscussions    = "No Reddit discussions found."
	synthesisErrorPrefix  = "Error generating answer: "
	defaultConflictReport = "No conflicts detected."
)

func selectionSchema(k int) *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"selected_urls": llm.StringArraySchema(fmt.Sprintf("List of %d best reddit URLs from the provided text", k)),
		},
		Required: []string{"selected_urls"},
	}
}

var conflictSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"agreements":             llm.StringArraySchema("List of matching facts or opinions"),
		"conflicts":              llm.StringArraySchema("List of contradictions or disagreements"),
		"unique_google_insights": llm.StringArraySchema("Information found only in Google results"),
		"unique_reddit_insights": llm.StringArraySchema("Information found only in Reddit results"),
		"final_conflict_report":  llm.StringSchema("A brief summary of the differences"),
	},
	Required: []string{"agreements", "conflicts", "unique_google_insights", "unique_reddit_insights", "final_conflict_report"},
}

func formatResults(results []SearchResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("Title: %s\nSnippet: %s", r.Title, r.Snippet))
	}
	return strings.Join(lines, "\n")
}

func formatBullets(results []SearchResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
	}
	return strings.Join(lines, "\n")
}

func formatThreadList(results []SearchResult) string {
	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i, r.Title, r.Link))
	}
	return strings.Join(lines, "\n")
}

func generalAnalysisMessages(question, results string) []llm.Message {
	return []llm.Message{
		llm.System(systemGeneralAnalysis),
		llm.Human(fmt.Sprintf("User Question: %s\n\nGoogle Results:\n%s\n\nSummarize the key facts.", question, results)),
	}
}

func secondaryAnalysisMessages(question, results string) []llm.Message {
	return []llm.Message{
		llm.System(systemSecondaryAnalysis),
		llm.Human(fmt.Sprintf("User Question: %s\n\nDuckDuckGo Results:\n%s\n\nSummarize the key facts, ignoring duplicates from other sources.", question, results)),
	}
}

func forumAnalysisMessages(question, posts string) []llm.Message {
	return []llm.Message{
		llm.System(systemForumAnalysis),
		llm.Human(fmt.Sprintf("User Question: %s\n\nReddit Discussions:\n%s\n\nSummarize the community consensus and specific advice.", question, posts)),
	}
}

func selectionMessages(question, threads string, k int) []llm.Message {
	return []llm.Message{
		llm.System(systemSelection),
		llm.Human(fmt.Sprintf(`User Query: %s

Reddit Threads Found:
%s

Select the top %d URLs that are most likely to answer the query. Return ONLY the URLs.`, question, threads, k)),
	}
}

func conflictMessages(general, forum string) []llm.Message {
	return []llm.Message{
		llm.System(systemConflict),
		llm.Human(fmt.Sprintf(`Analyze these two data sets:

--- GOOGLE RESULTS ---
%s

--- REDDIT RESULTS ---
%s

Produce a JSON object with:
- agreements: list of matching facts/opinions
- conflicts: list of contradictions or disagreements
- unique_google_insights: what only Google mentioned
- unique_reddit_insights: what only Reddit mentioned
- final_conflict_report: a brief summary of the differences`, general, forum)),
	}
}

func synthesisMessages(question, general, secondary, forum string, report ConflictReport) []llm.Message {
	conflictText := ""
	if !report.IsZero() {
		summary := report.Summary
		if strings.TrimSpace(summary) == "" {
			summary = defaultConflictReport
		}
		conflictText = fmt.Sprintf(`--- CONFLICT REPORT ---
Agreements: %s
Conflicts: %s
Unique to Google: %s
Unique to Reddit: %s
Summary: %s
`, listText(report.Agreements), listText(report.Conflicts), listText(report.UniqueToGeneral), listText(report.UniqueToCommunity), summary)
	}

	return []llm.Message{
		llm.System(systemSynthesis),
		llm.Human(fmt.Sprintf(`User Question: %s

1. Google Report: %s
2. DuckDuckGo Report: %s
3. Reddit Report: %s

%s
Construct the final answer. Start with a direct answer, then provide summarize details from the sources.
If there are conflicts between official sources (Google) and community (Reddit), explicitly highlight them using the Conflict Report data.`,
			question, general, secondary, forum, conflictText)),
	}
}

func listText(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
