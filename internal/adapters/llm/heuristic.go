package llm

import (
	"context"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// Heuristic outputs. They keep the workflow moving when no real model is
// reachable; answers produced this way are not meant to be correct.
const (
	HeuristicClassification = "hybrid"
	HeuristicQuery          = "SELECT 1"
	HeuristicSynthesis      = `{"answer": "42", "explanation": "Fallback response"}`
)

// HeuristicModel is a deterministic offline backend. It never fails.
type HeuristicModel struct {
	name string
}

// NewHeuristicModel creates the offline backend.
func NewHeuristicModel(cfg BackendConfig) *HeuristicModel {
	name := cfg.Name
	if name == "" {
		name = core.BackendHeuristic
	}
	return &HeuristicModel{name: name}
}

// Name returns the backend name.
func (m *HeuristicModel) Name() string { return m.name }

// Generate returns the canned output for the request's task.
func (m *HeuristicModel) Generate(_ context.Context, req core.ModelRequest) (string, error) {
	switch req.Task {
	case core.TaskClassify:
		return HeuristicClassification, nil
	case core.TaskSQL:
		return HeuristicQuery, nil
	default:
		return HeuristicSynthesis, nil
	}
}
