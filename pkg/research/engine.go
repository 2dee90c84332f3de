package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/search-agent/pkg/llm"
	"github.com/mikeboe/search-agent/pkg/splitter"
)

var ErrEmptyQuestion = errors.New("question is empty")

type Engine struct {
	Config    Config
	Providers Providers
	Generator llm.Generator
	Logger    *slog.Logger
	Metrics   *Metrics

	splitter *splitter.TextSplitter
	graph    *Graph
}

// Report is the outcome of one run.
type Report struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	State    *ExecutionState
	Trace    []NodeResult
}

// Answer returns the final answer of the run.
func (r *Report) Answer() string {
	return r.State.FinalAnswer.Or("")
}

func NewEngine(cfg Config, providers Providers, gen llm.Generator) (*Engine, error) {
	if gen == nil {
		gen = llm.Unavailable{}
	}
	cfg = cfg.withDefaults()
	e := &Engine{
		Config:    cfg,
		Providers: providers,
		Generator: gen,
		Logger:    slog.Default(),
		splitter:  splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
	}
	g, err := NewGraph(e.nodes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build research graph: %w", err)
	}
	e.graph = g
	return e, nil
}

// Graph exposes the static node table.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Run answers question and returns the final answer text. Node failures degrade the answer
// instead of returning an error.
func (e *Engine) Run(ctx context.Context, question string) (string, error) {
	report, err := e.Execute(ctx, question)
	if err != nil {
		return "", err
	}
	return report.Answer(), nil
}

type executeOptions struct {
	logger *slog.Logger
}

type ExecuteOption func(*executeOptions)

// WithRunLogger sends the run's log records to l instead of the engine logger.
func WithRunLogger(l *slog.Logger) ExecuteOption {
	return func(o *executeOptions) { o.logger = l }
}

// Execute runs the whole graph for question and returns the final state and node trace.
func (e *Engine) Execute(ctx context.Context, question string, opts ...ExecuteOption) (*Report, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	o := executeOptions{logger: e.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	report := &Report{
		ID:      uuid.NewString(),
		Started: time.Now(),
		State:   NewState(question),
	}
	logger := o.logger.With("run_id", report.ID)
	ctx = WithLogger(ctx, logger)

	logger.Info("Starting research", "question", question)
	e.Metrics.runStarted()
	report.Trace = e.graph.Run(ctx, report.State, logger, e.Metrics)
	report.Duration = time.Since(report.Started)
	logger.Info("Research complete", "duration", report.Duration)
	return report, nil
}

// SearchGeneral runs only the general search provider.
func (e *Engine) SearchGeneral(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	return e.search(ctx, e.Providers.General, query)
}

// SearchForum searches the forum and fetches the first K threads without asking the model
// to rank them.
func (e *Engine) SearchForum(ctx context.Context, query string) ([]SearchResult, []ContentBlob, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, ErrEmptyQuestion
	}
	threads, err := e.search(ctx, e.Providers.Forum, query)
	if err != nil {
		return nil, nil, err
	}
	content, err := e.fetchThreads(ctx, firstLinks(threads, e.Config.SelectCount))
	if err != nil {
		return nil, nil, err
	}
	return threads, content, nil
}

// DetectConflicts compares general results with rendered forum threads. Unlike the graph
// node it reports generation failures to the caller.
func (e *Engine) DetectConflicts(ctx context.Context, general []SearchResult, forum []string) (ConflictReport, error) {
	report, err := e.detectConflicts(ctx, general, forum)
	if err != nil {
		return ConflictReport{}.Normalized(), err
	}
	return report.Normalized(), nil
}

type loggerKey struct{}

// WithLogger returns a context carrying l. Adapters called from graph nodes log through it
// so their records stay attached to the run.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFrom returns the logger carried by ctx, or slog.Default().
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func (e *Engine) logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
