package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/mikeboe/search-agent/pkg/research"
)

type Service struct {
	Engine *research.Engine
	Logger *slog.Logger
}

func NewService(engine *research.Engine) *Service {
	return &Service{
		Engine: engine,
		Logger: slog.Default(),
	}
}

type ResearchRequest struct {
	Question string `json:"question" binding:"required"`
}

type ResearchResponse struct {
	ID         string                `json:"id"`
	Question   string                `json:"question"`
	Answer     string                `json:"answer"`
	StartedAt  time.Time             `json:"started_at"`
	DurationMs int64                 `json:"duration_ms"`
	State      research.Snapshot     `json:"state"`
	Trace      []research.NodeResult `json:"trace"`
	Logs       []LogEntry            `json:"logs"`
}

// Research runs the full pipeline synchronously and returns the answer together with the
// final state, the node trace and the logs of the run.
func (s *Service) Research(ctx context.Context, question string) (*ResearchResponse, error) {
	capture := NewRunLogHandler(s.Logger.Handler())
	report, err := s.Engine.Execute(ctx, question, research.WithRunLogger(slog.New(capture)))
	if err != nil {
		return nil, err
	}

	return &ResearchResponse{
		ID:         report.ID,
		Question:   report.State.Query,
		Answer:     report.Answer(),
		StartedAt:  report.Started,
		DurationMs: report.Duration.Milliseconds(),
		State:      report.State.Snapshot(),
		Trace:      report.Trace,
		Logs:       capture.Entries(),
	}, nil
}
