package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// Nodes holds the step bodies and the collaborators they call.
type Nodes struct {
	collab   core.Collaborators
	topK     int
	logger   *logging.Logger
	observer Observer
}

// NewNodes binds step bodies to collaborators.
func NewNodes(collab core.Collaborators, topK int, logger *logging.Logger, observer Observer) (*Nodes, error) {
	if err := collab.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = core.DefaultTopK
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Nodes{collab: collab, topK: topK, logger: logger, observer: observer}, nil
}

// Steps returns the body for every executable step.
func (n *Nodes) Steps() map[core.Step]StepFunc {
	return map[core.Step]StepFunc{
		core.StepRoute:      n.route,
		core.StepRetrieve:   n.retrieve,
		core.StepGenQuery:   n.genQuery,
		core.StepExecQuery:  n.execQuery,
		core.StepSynthesize: n.synthesize,
		core.StepValidate:   n.validate,
		core.StepRepair:     n.repair,
	}
}

// degrade logs and counts a collaborator failure. It returns the context
// error instead when the failure was caused by cancellation, so that the
// engine stops rather than continuing on a default.
func (n *Nodes) degrade(ctx context.Context, s core.WorkflowState, step core.Step, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	n.logger.WithQuestion(s.QuestionID).WithStep(string(step)).WithContext(ctx).Warn("degraded",
		"error", err,
		"category", core.GetCategory(err),
	)
	n.observer.Degraded(step, core.ErrDegraded(step, err))
	return nil
}

func (n *Nodes) route(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	label, err := n.collab.Classifier.Classify(ctx, s.Question)
	if err != nil {
		if cerr := n.degrade(ctx, s, core.StepRoute, err); cerr != nil {
			return core.StateUpdate{}, cerr
		}
		label = string(core.ClassificationHybrid)
	}
	return core.StateUpdate{
		Classification: core.Set(core.ParseClassification(label)),
	}, nil
}

func (n *Nodes) retrieve(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	docs, err := n.collab.Retriever.Retrieve(ctx, s.Question, n.topK)
	if err != nil {
		if cerr := n.degrade(ctx, s, core.StepRetrieve, err); cerr != nil {
			return core.StateUpdate{}, cerr
		}
		docs = []core.Doc{}
	}
	return core.StateUpdate{RelevantDocs: core.Set(docs)}, nil
}

func (n *Nodes) genQuery(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	schema, err := n.collab.Schema.Schema(ctx)
	if err != nil {
		if cerr := n.degrade(ctx, s, core.StepGenQuery, fmt.Errorf("describing schema: %w", err)); cerr != nil {
			return core.StateUpdate{}, cerr
		}
		schema = ""
	}

	query, err := n.collab.QueryGenerator.GenerateQuery(ctx, core.QueryRequest{
		Question: s.Question,
		Schema:   schema,
		Docs:     s.RelevantDocs,
	})
	if err != nil {
		if cerr := n.degrade(ctx, s, core.StepGenQuery, err); cerr != nil {
			return core.StateUpdate{}, cerr
		}
		query = ""
	}
	return core.StateUpdate{GeneratedQuery: core.Set(strings.TrimSpace(query))}, nil
}

func (n *Nodes) execQuery(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	if s.GeneratedQuery == "" {
		return core.StateUpdate{QueryResult: core.Set[*core.QueryResult](nil)}, nil
	}
	res := n.collab.Executor.Execute(ctx, s.GeneratedQuery)
	if !res.Success {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.StateUpdate{}, ctxErr
		}
		n.logger.WithQuestion(s.QuestionID).WithStep(string(core.StepExecQuery)).Info("query failed",
			"error", res.Error,
			"repair_count", s.RepairCount,
		)
	}
	return core.StateUpdate{QueryResult: core.Set(&res)}, nil
}

func (n *Nodes) synthesize(ctx context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	syn, err := n.collab.Synthesizer.Synthesize(ctx, core.SynthesisRequest{
		Question:    s.Question,
		QueryResult: s.QueryResult,
		Docs:        s.RelevantDocs,
		FormatHint:  s.FormatHint,
	})
	if err != nil {
		if cerr := n.degrade(ctx, s, core.StepSynthesize, err); cerr != nil {
			return core.StateUpdate{}, cerr
		}
		syn = core.Synthesis{
			Answer:      core.TextAnswer(""),
			Explanation: "synthesis unavailable: " + err.Error(),
		}
	}

	var tables []string
	if s.QuerySucceeded() {
		tables, err = n.collab.Schema.TableNames(ctx)
		if err != nil {
			if cerr := n.degrade(ctx, s, core.StepSynthesize, fmt.Errorf("listing tables: %w", err)); cerr != nil {
				return core.StateUpdate{}, cerr
			}
			tables = nil
		}
	}

	return core.StateUpdate{
		FinalAnswer: core.Set(syn.Answer),
		Explanation: core.Set(syn.Explanation),
		Citations:   core.Set(core.ExtractCitations(s.GeneratedQuery, s.QuerySucceeded(), tables, s.RelevantDocs)),
	}, nil
}

func (n *Nodes) validate(_ context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	return core.StateUpdate{
		IsValid: core.Set(core.ValidateAnswerFormat(s.FinalAnswer, s.FormatHint)),
	}, nil
}

func (n *Nodes) repair(_ context.Context, s core.WorkflowState) (core.StateUpdate, error) {
	n.logger.WithQuestion(s.QuestionID).Debug("starting repair cycle", "repair_count", s.RepairCount+1)
	return core.StateUpdate{RepairCount: core.Set(s.RepairCount + 1)}, nil
}
