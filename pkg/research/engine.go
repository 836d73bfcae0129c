package research

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
	"github.com/mikeboe/topic-report/pkg/research/tools"
)

// ReportBanner precedes the report on the console.
const ReportBanner = "======= 360° TOPIC REPORT ======="

type ResearchEngine struct {
	Config   *config.Config
	LLM      clients.Completer
	Search   tools.Searcher // news and industry
	Academic tools.Searcher
	Graph    Graph
	Out      io.Writer
	Logger   *slog.Logger

	// OnStateUpdate is called after every completed wave of the graph.
	OnStateUpdate func(state RunState)
}

func NewEngine(cfg *config.Config, llm clients.Completer) (*ResearchEngine, error) {
	graph, err := graphFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	search := tools.NewSerper(cfg.SerperApiKey, cfg.SerperURL, cfg.HTTPTimeout)

	var academic tools.Searcher
	switch cfg.AcademicSource {
	case "", "serper":
		academic = search
	case "arxiv":
		academic = tools.NewArxiv(cfg.HTTPTimeout)
	default:
		return nil, fmt.Errorf("unknown academic source: %s", cfg.AcademicSource)
	}

	e := &ResearchEngine{
		Config:   cfg,
		LLM:      llm,
		Search:   search,
		Academic: academic,
		Graph:    graph,
		Out:      os.Stdout,
		Logger:   slog.Default(),
	}

	if err := graph.Validate(e.Steps()); err != nil {
		return nil, err
	}
	return e, nil
}

func graphFromConfig(cfg *config.Config) (Graph, error) {
	if cfg.PipelineFile != "" {
		return LoadGraph(cfg.PipelineFile)
	}
	name := cfg.PipelineVariant
	if name == "" {
		name = "parallel"
	}
	return Variant(name)
}

// WithLogger returns a shallow copy that logs to l. Clients are shared.
func (e *ResearchEngine) WithLogger(l *slog.Logger) *ResearchEngine {
	cp := *e
	cp.Logger = l
	return &cp
}

// Run executes one pipeline run for topic. On failure the partial state is
// returned alongside the error; Output is never set in that case.
func (e *ResearchEngine) Run(ctx context.Context, topic string) (*RunState, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	state := NewRunState(topic)
	logger := e.logger()

	runner, err := NewRunner(e.Graph, e.Steps(), logger)
	if err != nil {
		return state, err
	}
	runner.OnWave = e.OnStateUpdate

	logger.Info("Starting run", "run_id", state.ID, "topic", topic, "graph", e.Graph.Name)
	start := time.Now()

	if _, err := runner.Run(ctx, state); err != nil {
		logger.Error("Run aborted", "run_id", state.ID, "error", err)
		return state, err
	}

	logger.Info("Run complete", "run_id", state.ID, "fields", state.Populated(), "duration", time.Since(start))
	return state, nil
}

// Steps returns every step the engine knows, keyed by name. The active graph
// decides which of them run.
func (e *ResearchEngine) Steps() map[string]Step {
	return map[string]Step{
		StepAcademic: {Name: StepAcademic, Field: FieldAcademic, Run: e.academicStep},
		StepNews:     {Name: StepNews, Field: FieldNews, Run: e.newsStep},
		StepIndustry: {Name: StepIndustry, Field: FieldIndustry, Run: e.industryStep},
		StepMerge:    {Name: StepMerge, Field: FieldReport, Run: e.mergeStep},
		StepOutput:   {Name: StepOutput, Field: FieldOutput, Run: e.outputStep},
	}
}

func (e *ResearchEngine) academicStep(ctx context.Context, in Inputs) (string, error) {
	res := e.search(ctx, e.Academic, StepAcademic, academicQuery(in.Topic))
	return e.complete(ctx, academicSystemPrompt, academicUserPrompt(in.Topic, academicContext(res)))
}

func (e *ResearchEngine) newsStep(ctx context.Context, in Inputs) (string, error) {
	res := e.search(ctx, e.Search, StepNews, newsQuery(in.Topic))
	return e.complete(ctx, newsSystemPrompt, newsUserPrompt(in.Topic, newsContext(res)))
}

func (e *ResearchEngine) industryStep(ctx context.Context, in Inputs) (string, error) {
	res := e.search(ctx, e.Search, StepIndustry, industryQuery(in.Topic))
	return e.complete(ctx, industrySystemPrompt, industryUserPrompt(in.Topic, industryContext(res)))
}

func (e *ResearchEngine) mergeStep(ctx context.Context, in Inputs) (string, error) {
	prompt := mergeUserPrompt(
		in.Topic,
		in.GetOr(FieldAcademic, NoAcademic),
		in.GetOr(FieldNews, NoNews),
		in.GetOr(FieldIndustry, NoIndustry),
	)
	return e.complete(ctx, mergeSystemPrompt, prompt)
}

// outputStep presents the report. Presentation errors are logged and
// swallowed; the run still completes.
func (e *ResearchEngine) outputStep(ctx context.Context, in Inputs) (string, error) {
	report, ok := in.Get(FieldReport)
	if !ok {
		return "", ErrMissingReport
	}

	out := e.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintf(out, "\n\n%s\n\n%s\n", ReportBanner, report); err != nil {
		e.logger().Warn("Failed to print report", "error", err)
	}

	if e.Config != nil && e.Config.ReportDir != "" {
		if path, err := saveReport(e.Config.ReportDir, report); err != nil {
			e.logger().Warn("Failed to save report locally", "error", err)
		} else {
			e.logger().Info("Saved report", "filename", path)
		}
	}

	return report, nil
}

func saveReport(dir, report string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%d.md", time.Now().Unix()))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (e *ResearchEngine) search(ctx context.Context, s tools.Searcher, step, query string) tools.SearchResult {
	if s == nil {
		return tools.SearchResult{Err: fmt.Errorf("no searcher configured for %s", step)}
	}
	limit := tools.DefaultLimit
	if e.Config != nil && e.Config.SearchLimit > 0 {
		limit = e.Config.SearchLimit
	}

	res := s.Search(ctx, query, limit)
	if res.Failed() {
		e.logger().Warn("Search failed, continuing without recent data", "step", step, "query", query, "error", res.Err)
	} else {
		e.logger().Debug("Search successful", "step", step, "organic", len(res.Organic), "news", len(res.News))
	}
	return res
}

func (e *ResearchEngine) complete(ctx context.Context, system, user string) (string, error) {
	return e.LLM.Complete(ctx, []clients.Message{
		clients.System(system),
		clients.User(user),
	}, clients.Options{})
}

func (e *ResearchEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
