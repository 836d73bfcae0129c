package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var ErrInvalidGraph = errors.New("invalid graph")

// Step names. Each step owns exactly one Field.
const (
	StepAcademic = "academic"
	StepNews     = "news"
	StepIndustry = "industry"
	StepMerge    = "merge"
	StepOutput   = "output"
)

// StepFunc produces the value of the step's field.
type StepFunc func(ctx context.Context, in Inputs) (string, error)

type Step struct {
	Name  string
	Field Field
	Run   StepFunc
}

// Graph is a static node list plus a dependency table (node -> prerequisites).
type Graph struct {
	Name  string              `yaml:"name" json:"name"`
	Nodes []string            `yaml:"nodes" json:"nodes"`
	Deps  map[string][]string `yaml:"deps" json:"deps"`
}

// Built-in variants.
var variants = map[string]Graph{
	// academic -> news -> merge -> output
	"sequential": {
		Name:  "sequential",
		Nodes: []string{StepAcademic, StepNews, StepMerge, StepOutput},
		Deps: map[string][]string{
			StepNews:   {StepAcademic},
			StepMerge:  {StepAcademic, StepNews},
			StepOutput: {StepMerge},
		},
	},
	// academic -> news -> industry -> merge, merge reading all three
	"chained": {
		Name:  "chained",
		Nodes: []string{StepAcademic, StepNews, StepIndustry, StepMerge, StepOutput},
		Deps: map[string][]string{
			StepNews:     {StepAcademic},
			StepIndustry: {StepNews},
			StepMerge:    {StepAcademic, StepNews, StepIndustry},
			StepOutput:   {StepMerge},
		},
	},
	// academic -> {news, industry} -> merge -> output
	"parallel": {
		Name:  "parallel",
		Nodes: []string{StepAcademic, StepNews, StepIndustry, StepMerge, StepOutput},
		Deps: map[string][]string{
			StepNews:     {StepAcademic},
			StepIndustry: {StepAcademic},
			StepMerge:    {StepAcademic, StepNews, StepIndustry},
			StepOutput:   {StepMerge},
		},
	},
}

// Variant returns a copy of a built-in graph.
func Variant(name string) (Graph, error) {
	g, ok := variants[name]
	if !ok {
		return Graph{}, fmt.Errorf("%w: unknown variant %q (have %v)", ErrInvalidGraph, name, VariantNames())
	}
	return g.clone(), nil
}

func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadGraph reads a custom graph from a YAML file.
func LoadGraph(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Graph{}, fmt.Errorf("read graph: %w", err)
	}
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Graph{}, fmt.Errorf("parse graph: %w", err)
	}
	if g.Name == "" {
		g.Name = path
	}
	return g, nil
}

func (g Graph) clone() Graph {
	out := Graph{Name: g.Name, Nodes: slices.Clone(g.Nodes), Deps: make(map[string][]string, len(g.Deps))}
	for k, v := range g.Deps {
		out.Deps[k] = slices.Clone(v)
	}
	return out
}

// Validate checks that every node has a step, every dependency is a node of
// the graph and the graph is acyclic.
func (g Graph) Validate(steps map[string]Step) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}

	inGraph := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if inGraph[n] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, n)
		}
		if _, ok := steps[n]; !ok {
			return fmt.Errorf("%w: no step named %q", ErrInvalidGraph, n)
		}
		inGraph[n] = true
	}
	for node, deps := range g.Deps {
		if !inGraph[node] {
			return fmt.Errorf("%w: dependencies declared for unknown node %q", ErrInvalidGraph, node)
		}
		for _, d := range deps {
			if !inGraph[d] {
				return fmt.Errorf("%w: node %q depends on unknown node %q", ErrInvalidGraph, node, d)
			}
		}
	}

	// Kahn's algorithm; anything left over sits on a cycle.
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] = len(g.Deps[n])
	}
	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, m := range g.Nodes {
			if slices.Contains(g.Deps[m], n) {
				indegree[m]--
				if indegree[m] == 0 {
					queue = append(queue, m)
				}
			}
		}
	}
	if visited != len(g.Nodes) {
		return fmt.Errorf("%w: cycle detected", ErrInvalidGraph)
	}
	return nil
}

// Status is the lifecycle of a node within one run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Runner walks a validated graph. Nodes whose prerequisites are all done run
// together in a wave; results are written to RunState only after the wave
// joins, so the runner is the single writer.
type Runner struct {
	graph  Graph
	steps  map[string]Step
	logger *slog.Logger

	// OnWave is called after each wave completes successfully.
	OnWave func(state RunState)
}

func NewRunner(g Graph, steps map[string]Step, logger *slog.Logger) (*Runner, error) {
	if err := g.Validate(steps); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{graph: g, steps: steps, logger: logger}, nil
}

func (r *Runner) Graph() Graph { return r.graph.clone() }

// Run executes every node once. It stops at the first failed wave and
// returns a *StepError for the failing node.
func (r *Runner) Run(ctx context.Context, state *RunState) (map[string]Status, error) {
	status := make(map[string]Status, len(r.graph.Nodes))
	for _, n := range r.graph.Nodes {
		status[n] = StatusPending
	}

	for remaining := len(r.graph.Nodes); remaining > 0; {
		if err := ctx.Err(); err != nil {
			return status, err
		}

		wave := r.eligible(status)
		if len(wave) == 0 {
			// Validate rules this out; guard against a graph mutated after construction.
			return status, fmt.Errorf("%w: no runnable node", ErrInvalidGraph)
		}

		results := make([]string, len(wave))
		done := make([]bool, len(wave))
		errs := make([]error, len(wave))
		g, gctx := errgroup.WithContext(ctx)

		for i, name := range wave {
			status[name] = StatusRunning
			step := r.steps[name]
			in := r.inputs(state, name)

			g.Go(func() error {
				start := time.Now()
				r.logger.Info("Step started", "run_id", state.ID, "step", name)

				out, err := step.Run(gctx, in)
				if err != nil {
					r.logger.Error("Step failed", "run_id", state.ID, "step", name, "error", err)
					errs[i] = &StepError{Step: name, Err: err}
					return errs[i]
				}

				r.logger.Info("Step finished", "run_id", state.ID, "step", name, "duration", time.Since(start), "length", len(out))
				results[i] = out
				done[i] = true
				return nil
			})
		}

		waitErr := g.Wait()

		for i, name := range wave {
			if errs[i] != nil {
				status[name] = StatusFailed
				continue
			}
			if !done[i] {
				// Cancelled before finishing.
				status[name] = StatusFailed
				continue
			}
			if err := state.Set(r.steps[name].Field, results[i]); err != nil {
				status[name] = StatusFailed
				return status, &StepError{Step: name, Err: err}
			}
			status[name] = StatusDone
			remaining--
		}

		if waitErr != nil {
			return status, waitErr
		}
		if r.OnWave != nil {
			r.OnWave(*state)
		}
	}

	return status, nil
}

// eligible returns pending nodes whose prerequisites are done, in declared order.
func (r *Runner) eligible(status map[string]Status) []string {
	var wave []string
	for _, n := range r.graph.Nodes {
		if status[n] != StatusPending {
			continue
		}
		ready := true
		for _, d := range r.graph.Deps[n] {
			if status[d] != StatusDone {
				ready = false
				break
			}
		}
		if ready {
			wave = append(wave, n)
		}
	}
	return wave
}

func (r *Runner) inputs(state *RunState, node string) Inputs {
	in := Inputs{Topic: state.Topic, values: make(map[Field]string)}
	for _, d := range r.graph.Deps[node] {
		f := r.steps[d].Field
		if v, ok := state.Get(f); ok {
			in.values[f] = v
		}
	}
	return in
}
