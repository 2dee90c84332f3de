package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikeboe/search-agent/pkg/llm"
	"github.com/mikeboe/search-agent/pkg/research"
)

type Handler struct {
	Service *Service
	// MCP serves the MCP streamable HTTP transport; Metrics serves Prometheus metrics.
	MCP     http.Handler
	Metrics http.Handler
}

func NewHandler(s *Service, mcp, metrics http.Handler) *Handler {
	return &Handler{Service: s, MCP: mcp, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}
	if h.MCP != nil {
		r.Any("/mcp", gin.WrapH(h.MCP))
	}

	api := r.Group("/api")
	{
		api.POST("/research", h.research)
		api.POST("/search/google", h.searchGoogle)
		api.POST("/search/reddit", h.searchReddit)
		api.POST("/analyze/conflicts", h.analyzeConflicts)
	}
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

type ConflictRequest struct {
	GoogleResults []research.SearchResult `json:"google_results"`
	RedditResults []string                `json:"reddit_results"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Search Agent API is running"})
}

func (h *Handler) research(c *gin.Context) {
	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.Research(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, research.ErrEmptyQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Search endpoints fail closed: a provider error yields empty results, not an error status.
func (h *Handler) searchGoogle(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.Service.Engine.SearchGeneral(c.Request.Context(), req.Query)
	if err != nil {
		slog.Warn("Google search failed", "query", req.Query, "error", err)
		results = []research.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) searchReddit(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threads, content, err := h.Service.Engine.SearchForum(c.Request.Context(), req.Query)
	if err != nil {
		slog.Warn("Reddit search failed", "query", req.Query, "error", err)
		threads, content = []research.SearchResult{}, nil
	}
	posts := make([]string, 0, len(content))
	for _, b := range content {
		posts = append(posts, b.String())
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads, "content": posts})
}

func (h *Handler) analyzeConflicts(c *gin.Context) {
	var req ConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.Service.Engine.Generator.(llm.Unavailable); ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "LLM not initialized"})
		return
	}

	report, err := h.Service.Engine.DetectConflicts(c.Request.Context(), req.GoogleResults, req.RedditResults)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "LLM not initialized"})
			return
		}
		slog.Error("Conflict analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
