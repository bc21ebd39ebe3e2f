package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// MaxSteps caps the number of step executions in one run. A well-formed
// graph needs at most seven steps per pass and MaxRepairs+1 passes; the
// ceiling only trips on a malformed transition table.
const MaxSteps = 2 * (core.MaxRepairs + 1) * 7

// ErrStepLimit is returned when a run exceeds its step ceiling.
var ErrStepLimit = core.ErrExecution(core.CodeStepLimit, "workflow exceeded its step limit")

const tracerName = "github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"

// StepFunc is a step body. It reads the current snapshot and returns the
// fields it wants to change. The only error a step returns is a context
// error; collaborator failures are folded into the update.
type StepFunc func(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error)

// TraceEntry records one executed step.
type TraceEntry struct {
	Step     core.Step     `json:"step"`
	Branch   core.Branch   `json:"branch,omitempty"`
	Next     core.Step     `json:"next"`
	Fields   []string      `json:"fields,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Trace is the ordered list of steps a run executed.
type Trace []TraceEntry

// Steps returns the executed step names in order.
func (t Trace) Steps() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = string(e.Step)
	}
	return out
}

// Count returns how many times step ran.
func (t Trace) Count(step core.Step) int {
	n := 0
	for _, e := range t {
		if e.Step == step {
			n++
		}
	}
	return n
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMaxSteps overrides the step ceiling.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// Engine executes a Graph over a set of step bodies.
type Engine struct {
	graph    Graph
	steps    map[core.Step]StepFunc
	maxSteps int
	logger   *logging.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewEngine validates the graph and checks that every step in it has a body.
func NewEngine(graph Graph, steps map[core.Step]StepFunc, opts ...EngineOption) (*Engine, error) {
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow graph: %w", err)
	}
	for step := range graph {
		if steps[step] == nil {
			return nil, fmt.Errorf("no body for step %s", step)
		}
	}

	e := &Engine{
		graph:    graph,
		steps:    steps,
		maxSteps: MaxSteps,
		logger:   logging.NewNop(),
		observer: NopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives initial through the graph until the terminal marker. It
// checks ctx before every step, so cancellation takes effect between steps.
// The returned state is the last merged snapshot even when err is non-nil.
func (e *Engine) Run(ctx context.Context, initial core.WorkflowState) (Trace, core.WorkflowState, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("question.id", initial.QuestionID)))
	defer span.End()

	log := e.logger.WithQuestion(initial.QuestionID).WithContext(ctx)
	state := initial
	current := EntryStep
	tr := make(Trace, 0, 8)

	for current != core.StepEnd {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return tr, state, core.ErrCancelled(err)
		}
		if len(tr) >= e.maxSteps {
			log.Error("workflow step limit reached", "steps", len(tr), "last_step", current)
			span.SetStatus(codes.Error, "step limit")
			return tr, state, ErrStepLimit
		}

		entry, next, err := e.step(ctx, current, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return tr, state, core.ErrCancelled(err)
			}
			return tr, state, err
		}
		state = next
		tr = append(tr, entry)

		log.Debug("step completed",
			"step", entry.Step,
			"branch", entry.Branch,
			"next", entry.Next,
			"fields", entry.Fields,
			"duration", entry.Duration,
		)
		current = entry.Next
	}

	span.SetAttributes(
		attribute.Int("workflow.steps", len(tr)),
		attribute.Int("workflow.repairs", state.RepairCount),
	)
	return tr, state, nil
}

// step executes one body inside its own span, merges the update and
// resolves the successor on the merged state.
func (e *Engine) step(ctx context.Context, step core.Step, state core.WorkflowState) (TraceEntry, core.WorkflowState, error) {
	body := e.steps[step]
	if body == nil {
		return TraceEntry{}, state, core.ErrValidation(core.CodeUnknownStep, fmt.Sprintf("no body for step %s", step))
	}

	ctx, span := e.tracer.Start(ctx, "workflow.step."+string(step),
		trace.WithAttributes(
			attribute.String("workflow.step", string(step)),
			attribute.Int("workflow.repair_count", state.RepairCount),
		))
	defer span.End()

	start := time.Now()
	update, err := body(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TraceEntry{}, state, err
	}

	merged := state.Merge(update)
	next, branch, err := e.graph.Successor(step, merged)
	if err != nil {
		return TraceEntry{}, merged, err
	}
	elapsed := time.Since(start)

	if branch != "" {
		span.SetAttributes(attribute.String("workflow.branch", string(branch)))
	}
	e.observer.StepCompleted(step, branch, elapsed)

	return TraceEntry{
		Step:     step,
		Branch:   branch,
		Next:     next,
		Fields:   update.Fields(),
		Duration: elapsed,
	}, merged, nil
}
