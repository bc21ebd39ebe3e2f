package testutil

import (
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// NewTestState creates a WorkflowState for a simple question.
// Use functional options to override specific fields.
func NewTestState(opts ...func(*core.WorkflowState)) core.WorkflowState {
	s := core.NewWorkflowState(core.Question{
		ID:       "q-test",
		Question: "How many orders were placed?",
	})
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithFormatHint sets the format hint.
func WithFormatHint(hint string) func(*core.WorkflowState) {
	return func(s *core.WorkflowState) { s.FormatHint = hint }
}

// WithRepairCount sets the repair counter.
func WithRepairCount(n int) func(*core.WorkflowState) {
	return func(s *core.WorkflowState) { s.RepairCount = n }
}

// WithQueryResult sets the execution result.
func WithQueryResult(r *core.QueryResult) func(*core.WorkflowState) {
	return func(s *core.WorkflowState) { s.QueryResult = r }
}

// WithClassification sets the routing decision.
func WithClassification(c core.Classification) func(*core.WorkflowState) {
	return func(s *core.WorkflowState) { s.Classification = c }
}
