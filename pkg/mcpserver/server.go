// Package mcpserver exposes the research pipeline as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/search-agent/pkg/research"
)

// Server wraps the MCP SDK server with the research tools registered.
type Server struct {
	MCPServer *sdkmcp.Server

	engine *research.Engine
	log    *slog.Logger
}

func NewServer(engine *research.Engine, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "search-agent", Version: version}, nil),
		engine:    engine,
		log:       slog.Default().With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// HTTPHandler serves the tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.MCPServer
	}, nil)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "research",
		Description: "Answer a question by searching Google, DuckDuckGo and Reddit, cross-checking official and community sources and synthesizing one report.",
	}, s.handleResearch)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_general",
		Description: "Search Google and return the top organic results.",
	}, s.handleSearchGeneral)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_forum",
		Description: "Search Reddit threads and return the threads plus the content of the top three.",
	}, s.handleSearchForum)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "detect_conflicts",
		Description: "Compare Google results with Reddit thread contents and report agreements and conflicts.",
	}, s.handleDetectConflicts)
}

// --- Tool input/output types ---

type researchInput struct {
	Question string `json:"question" jsonschema:"the research question"`
}

type researchOutput struct {
	RunID     string                  `json:"run_id"`
	Answer    string                  `json:"answer"`
	Conflicts research.ConflictReport `json:"conflict_report"`
	Degraded  []string                `json:"degraded_nodes"`
}

type queryInput struct {
	Query string `json:"query" jsonschema:"the search query"`
}

type searchGeneralOutput struct {
	Results []research.SearchResult `json:"results"`
}

type searchForumOutput struct {
	Threads []research.SearchResult `json:"threads"`
	Content []string                `json:"content"`
}

type detectConflictsInput struct {
	GoogleResults []research.SearchResult `json:"google_results" jsonschema:"general search results (title, link, snippet)"`
	RedditResults []string                `json:"reddit_results" jsonschema:"rendered reddit thread contents; only the first three are used"`
}

// --- Tool handlers ---

func (s *Server) handleResearch(ctx context.Context, _ *sdkmcp.CallToolRequest, input researchInput) (*sdkmcp.CallToolResult, researchOutput, error) {
	report, err := s.engine.Execute(ctx, input.Question)
	if err != nil {
		return nil, researchOutput{}, fmt.Errorf("research: %w", err)
	}

	degraded := []string{}
	for _, res := range report.Trace {
		if res.FellBack {
			degraded = append(degraded, res.Node)
		}
	}
	s.log.Info("research tool finished", "run_id", report.ID, "degraded", len(degraded))

	return nil, researchOutput{
		RunID:     report.ID,
		Answer:    report.Answer(),
		Conflicts: report.State.Conflicts.Or(research.ConflictReport{}).Normalized(),
		Degraded:  degraded,
	}, nil
}

func (s *Server) handleSearchGeneral(ctx context.Context, _ *sdkmcp.CallToolRequest, input queryInput) (*sdkmcp.CallToolResult, searchGeneralOutput, error) {
	results, err := s.engine.SearchGeneral(ctx, input.Query)
	if err != nil {
		return nil, searchGeneralOutput{}, fmt.Errorf("search_general: %w", err)
	}
	return nil, searchGeneralOutput{Results: results}, nil
}

func (s *Server) handleSearchForum(ctx context.Context, _ *sdkmcp.CallToolRequest, input queryInput) (*sdkmcp.CallToolResult, searchForumOutput, error) {
	threads, content, err := s.engine.SearchForum(ctx, input.Query)
	if err != nil {
		return nil, searchForumOutput{}, fmt.Errorf("search_forum: %w", err)
	}
	out := searchForumOutput{Threads: threads, Content: make([]string, 0, len(content))}
	for _, b := range content {
		out.Content = append(out.Content, b.String())
	}
	return nil, out, nil
}

func (s *Server) handleDetectConflicts(ctx context.Context, _ *sdkmcp.CallToolRequest, input detectConflictsInput) (*sdkmcp.CallToolResult, research.ConflictReport, error) {
	report, err := s.engine.DetectConflicts(ctx, input.GoogleResults, input.RedditResults)
	if err != nil {
		return nil, research.ConflictReport{}, fmt.Errorf("detect_conflicts: %w", err)
	}
	return nil, report, nil
}
