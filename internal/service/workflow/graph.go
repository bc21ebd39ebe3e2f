// Package workflow drives one question through the hybrid answering graph:
// routing, retrieval, query generation and execution, synthesis,
// validation and the bounded repair loop.
//
// The transition table (graph.go) is kept apart from the step bodies
// (nodes.go) so that either can be tested on its own. The Engine walks the
// table in an explicit loop; the Runner wraps it with confidence scoring
// and failure isolation; the BatchRunner fans questions out to workers.
package workflow

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// EntryStep is where every run starts, including repair cycles.
const EntryStep = core.StepRoute

// Selector picks a branch label from the post-merge state.
type Selector func(core.WorkflowState) core.Branch

// Transition describes how to leave a step: either unconditionally via
// Next, or through Select and its Branches table.
type Transition struct {
	Next     core.Step
	Select   Selector
	Branches map[core.Branch]core.Step
}

// Conditional reports whether the transition uses a selector.
func (t Transition) Conditional() bool {
	return t.Select != nil
}

// Graph maps every executable step to its outgoing transition.
type Graph map[core.Step]Transition

// DefaultGraph returns the question workflow:
//
//	route      -> retrieve
//	retrieve   -> DecideAfterRetrieval {sql_only: genQuery, rag_only: synthesize, hybrid: genQuery}
//	genQuery   -> execQuery
//	execQuery  -> CheckExec {success: synthesize, retry: repair, fail: synthesize}
//	synthesize -> validate
//	validate   -> CheckValidation {valid: end, invalid: repair}
//	repair     -> route
func DefaultGraph() Graph {
	return Graph{
		core.StepRoute: {Next: core.StepRetrieve},
		core.StepRetrieve: {
			Select: DecideAfterRetrieval,
			Branches: map[core.Branch]core.Step{
				core.BranchSQLOnly: core.StepGenQuery,
				core.BranchRAGOnly: core.StepSynthesize,
				core.BranchHybrid:  core.StepGenQuery,
			},
		},
		core.StepGenQuery: {Next: core.StepExecQuery},
		core.StepExecQuery: {
			Select: CheckExec,
			Branches: map[core.Branch]core.Step{
				core.BranchSuccess: core.StepSynthesize,
				core.BranchRetry:   core.StepRepair,
				core.BranchFail:    core.StepSynthesize,
			},
		},
		core.StepSynthesize: {Next: core.StepValidate},
		core.StepValidate: {
			Select: CheckValidation,
			Branches: map[core.Branch]core.Step{
				core.BranchValid:   core.StepEnd,
				core.BranchInvalid: core.StepRepair,
			},
		},
		core.StepRepair: {Next: EntryStep},
	}
}

// Successor resolves the step that follows from in state s. The returned
// branch is empty for unconditional transitions.
func (g Graph) Successor(from core.Step, s core.WorkflowState) (core.Step, core.Branch, error) {
	t, ok := g[from]
	if !ok {
		return "", "", core.ErrValidation(core.CodeUnknownStep, fmt.Sprintf("no transition for step %s", from))
	}
	if !t.Conditional() {
		return t.Next, "", nil
	}

	branch := t.Select(s)
	next, ok := t.Branches[branch]
	if !ok {
		return "", branch, core.ErrValidation(core.CodeUnknownStep,
			fmt.Sprintf("step %s selected unmapped branch %q", from, branch))
	}
	return next, branch, nil
}

// Validate checks that every transition points at a known step and that
// the terminal marker is reachable.
func (g Graph) Validate() error {
	if _, ok := g[EntryStep]; !ok {
		return fmt.Errorf("graph has no entry step %s", EntryStep)
	}

	terminal := false
	check := func(from, to core.Step) error {
		if to == core.StepEnd {
			terminal = true
			return nil
		}
		if _, ok := g[to]; !ok {
			return fmt.Errorf("step %s leads to unknown step %q", from, to)
		}
		return nil
	}

	for from, t := range g {
		if from == core.StepEnd {
			return fmt.Errorf("terminal marker must not have a transition")
		}
		if t.Conditional() {
			if len(t.Branches) == 0 {
				return fmt.Errorf("conditional step %s has no branches", from)
			}
			for _, to := range t.Branches {
				if err := check(from, to); err != nil {
					return err
				}
			}
			continue
		}
		if t.Next == "" {
			return fmt.Errorf("step %s has no successor", from)
		}
		if err := check(from, t.Next); err != nil {
			return err
		}
	}

	if !terminal {
		return fmt.Errorf("graph never reaches %s", core.StepEnd)
	}
	return nil
}

// DecideAfterRetrieval routes sql and rag questions to their dedicated
// paths; everything else, including an unset classification, is hybrid.
func DecideAfterRetrieval(s core.WorkflowState) core.Branch {
	switch s.Classification {
	case core.ClassificationSQL:
		return core.BranchSQLOnly
	case core.ClassificationRAG:
		return core.BranchRAGOnly
	default:
		return core.BranchHybrid
	}
}

// CheckExec asks for a repair after a failed or missing query result
// while repair budget remains.
func CheckExec(s core.WorkflowState) core.Branch {
	if s.QuerySucceeded() {
		return core.BranchSuccess
	}
	if s.RepairCount < core.MaxRepairs {
		return core.BranchRetry
	}
	return core.BranchFail
}

// CheckValidation accepts a valid answer, and accepts any answer once the
// repair budget is spent.
func CheckValidation(s core.WorkflowState) core.Branch {
	if s.IsValid || s.RepairCount >= core.MaxRepairs {
		return core.BranchValid
	}
	return core.BranchInvalid
}
