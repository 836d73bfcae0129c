package server

import (
	"context"
	"log/slog"

	"github.com/mikeboe/topic-report/pkg/research"
)

type Service struct {
	Engine *research.ResearchEngine
	Logger *slog.Logger
}

func NewService(engine *research.ResearchEngine, logger *slog.Logger) *Service {
	return &Service{Engine: engine, Logger: logger}
}

type CreateReportRequest struct {
	Topic string `json:"topic"`
}

// Report is one finished or aborted run together with the log records it
// produced.
type Report struct {
	Run   *research.RunState `json:"run"`
	Logs  []LogEntry         `json:"logs"`
	Error string             `json:"error,omitempty"`
}

// CreateReport runs the pipeline for topic. When the run aborts, the
// returned Report still carries the partial state and the logs.
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error) {
	var base slog.Handler
	if s.Logger != nil {
		base = s.Logger.Handler()
	}
	capture := NewCaptureHandler(base)
	engine := s.Engine.WithLogger(slog.New(capture))

	state, err := engine.Run(ctx, req.Topic)
	report := &Report{Run: state, Logs: capture.Entries()}
	if report.Logs == nil {
		report.Logs = []LogEntry{}
	}
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	return report, nil
}

func (s *Service) Graph() research.Graph {
	return s.Engine.Graph
}
