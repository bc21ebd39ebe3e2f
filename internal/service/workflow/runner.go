package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// RunnerConfig holds configuration for the question runner.
type RunnerConfig struct {
	// TopK is the number of chunks retrieved per pass.
	TopK int
	// QuestionTimeout bounds one question end to end. Zero disables it.
	QuestionTimeout time.Duration
	// IncludeDebug attaches workflow internals to each result.
	IncludeDebug bool
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TopK:            core.DefaultTopK,
		QuestionTimeout: 5 * time.Minute,
	}
}

// RunnerDeps holds dependencies for creating a Runner.
type RunnerDeps struct {
	Config        RunnerConfig
	Collaborators core.Collaborators
	Logger        *logging.Logger
	Observer      Observer
	// Graph overrides DefaultGraph; used by tests.
	Graph Graph
	// EngineOptions are applied after the logger and observer.
	EngineOptions []EngineOption
}

// Runner answers one question at a time. It is safe for concurrent use:
// every call owns its own WorkflowState.
type Runner struct {
	config   RunnerConfig
	engine   *Engine
	logger   *logging.Logger
	observer Observer
}

// NewRunner wires the step bodies to the collaborators and builds the engine.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Graph == nil {
		deps.Graph = DefaultGraph()
	}

	nodes, err := NewNodes(deps.Collaborators, deps.Config.TopK, deps.Logger, deps.Observer)
	if err != nil {
		return nil, fmt.Errorf("creating step bodies: %w", err)
	}

	opts := append([]EngineOption{WithLogger(deps.Logger), WithObserver(deps.Observer)}, deps.EngineOptions...)
	engine, err := NewEngine(deps.Graph, nodes.Steps(), opts...)
	if err != nil {
		return nil, err
	}

	return &Runner{
		config:   deps.Config,
		engine:   engine,
		logger:   deps.Logger,
		observer: deps.Observer,
	}, nil
}

// Answer runs the workflow for q and packages the result. It never fails:
// an engine error or a panic in any step becomes a zero-confidence result.
func (r *Runner) Answer(ctx context.Context, q core.Question) core.Result {
	res, _ := r.AnswerWithTrace(ctx, q)
	return res
}

// AnswerWithTrace is Answer plus the executed step trace.
func (r *Runner) AnswerWithTrace(ctx context.Context, q core.Question) (res core.Result, tr Trace) {
	start := time.Now()
	log := r.logger.WithQuestion(q.ID)
	state := core.NewWorkflowState(q)

	defer func() {
		if p := recover(); p != nil {
			log.Error("question panicked", "panic", p, "stack", string(debug.Stack()))
			res = core.FailedResult(q.ID, core.ErrExecution(core.CodeStepPanic, fmt.Sprint(p)))
		}
		r.observer.QuestionAnswered(res, state.RepairCount, time.Since(start))
	}()

	if strings.TrimSpace(q.Question) == "" {
		return core.FailedResult(q.ID, core.ErrValidation(core.CodeEmptyQuestion, "question is empty")), nil
	}

	if r.config.QuestionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.QuestionTimeout)
		defer cancel()
	}

	tr, final, err := r.engine.Run(ctx, state)
	state = final
	if err != nil {
		log.Warn("question failed", "error", err, "steps", len(tr))
		res = core.FailedResult(q.ID, err)
		res.SQL = final.GeneratedQuery
		r.attachDebug(&res, final, tr)
		return res, tr
	}

	res = r.result(final)
	r.attachDebug(&res, final, tr)

	log.Info("question answered",
		"classification", final.Classification,
		"repairs", final.RepairCount,
		"valid", final.IsValid,
		"confidence", res.Confidence,
		"steps", len(tr),
		"duration", time.Since(start),
	)
	return res, tr
}

// result derives the output record from a terminal state.
func (r *Runner) result(s core.WorkflowState) core.Result {
	citations := s.Citations
	if citations == nil {
		citations = []string{}
	}
	return core.Result{
		ID:          s.QuestionID,
		FinalAnswer: s.FinalAnswer,
		SQL:         s.GeneratedQuery,
		Confidence:  core.CalculateConfidence(s),
		Explanation: s.Explanation,
		Citations:   citations,
	}
}

func (r *Runner) attachDebug(res *core.Result, s core.WorkflowState, tr Trace) {
	if !r.config.IncludeDebug {
		return
	}
	d := &core.ResultDebug{
		Classification: s.Classification,
		RepairCount:    s.RepairCount,
		IsValid:        s.IsValid,
		Steps:          tr.Steps(),
	}
	if s.QueryResult != nil && !s.QueryResult.Success {
		d.QueryError = s.QueryResult.Error
	}
	res.Debug = d
}
