package core

import (
	"fmt"
	"strings"
)

// Step identifies a node in the question workflow graph.
type Step string

const (
	// StepRoute classifies the question as rag, sql or hybrid.
	StepRoute Step = "route"

	// StepRetrieve fetches document chunks for the question.
	// It runs on every pass regardless of the classification.
	StepRetrieve Step = "retrieve"

	// StepGenQuery asks the query generator for a SQL statement.
	StepGenQuery Step = "genQuery"

	// StepExecQuery runs the generated statement against the relational store.
	StepExecQuery Step = "execQuery"

	// StepSynthesize produces the answer, explanation and citations.
	StepSynthesize Step = "synthesize"

	// StepValidate checks the answer against the format hint.
	StepValidate Step = "validate"

	// StepRepair consumes one unit of the repair budget and loops back to routing.
	StepRepair Step = "repair"

	// StepEnd is the terminal marker. It is NOT an executable step.
	StepEnd Step = "end"
)

// AllSteps returns every executable step in first-pass order.
func AllSteps() []Step {
	return []Step{
		StepRoute, StepRetrieve, StepGenQuery, StepExecQuery,
		StepSynthesize, StepValidate, StepRepair,
	}
}

// ValidStep checks if a step name is known, including the terminal marker.
func ValidStep(s Step) bool {
	switch s {
	case StepRoute, StepRetrieve, StepGenQuery, StepExecQuery,
		StepSynthesize, StepValidate, StepRepair, StepEnd:
		return true
	default:
		return false
	}
}

// ParseStep converts a string to a Step with validation.
func ParseStep(s string) (Step, error) {
	st := Step(s)
	if !ValidStep(st) {
		return "", fmt.Errorf("invalid step: %s", s)
	}
	return st, nil
}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// Description returns a human-readable description of the step.
func (s Step) Description() string {
	switch s {
	case StepRoute:
		return "Classify the question"
	case StepRetrieve:
		return "Retrieve relevant document chunks"
	case StepGenQuery:
		return "Generate a SQL query"
	case StepExecQuery:
		return "Execute the generated query"
	case StepSynthesize:
		return "Synthesize the answer"
	case StepValidate:
		return "Validate the answer format"
	case StepRepair:
		return "Start a repair cycle"
	case StepEnd:
		return "Workflow finished"
	default:
		return "Unknown step"
	}
}

// Branch is the label a conditional transition selects.
type Branch string

const (
	BranchSQLOnly Branch = "sql_only"
	BranchRAGOnly Branch = "rag_only"
	BranchHybrid  Branch = "hybrid"

	BranchSuccess Branch = "success"
	BranchRetry   Branch = "retry"
	BranchFail    Branch = "fail"

	BranchValid   Branch = "valid"
	BranchInvalid Branch = "invalid"
)

// Classification is the coarse routing decision for a question.
type Classification string

const (
	ClassificationRAG    Classification = "rag"
	ClassificationSQL    Classification = "sql"
	ClassificationHybrid Classification = "hybrid"
)

// ParseClassification normalizes a classifier label. Anything that is not
// rag or sql becomes hybrid, which runs both the retrieval and query paths.
func ParseClassification(s string) Classification {
	switch Classification(normalizeLabel(s)) {
	case ClassificationRAG:
		return ClassificationRAG
	case ClassificationSQL:
		return ClassificationSQL
	default:
		return ClassificationHybrid
	}
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "\"'`. "))
}
