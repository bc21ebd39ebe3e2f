package workflow

import (
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

func TestDefaultGraph_Valid(t *testing.T) {
	t.Parallel()
	g := DefaultGraph()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, step := range core.AllSteps() {
		if _, ok := g[step]; !ok {
			t.Errorf("step %s has no transition", step)
		}
	}
	if _, ok := g[core.StepEnd]; ok {
		t.Error("terminal marker must not have a transition")
	}
}

func TestDecideAfterRetrieval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		class core.Classification
		want  core.Branch
	}{
		{core.ClassificationSQL, core.BranchSQLOnly},
		{core.ClassificationRAG, core.BranchRAGOnly},
		{core.ClassificationHybrid, core.BranchHybrid},
		{"", core.BranchHybrid},
		{"weird", core.BranchHybrid},
	}
	for _, tt := range tests {
		s := testutil.NewTestState(testutil.WithClassification(tt.class))
		if got := DecideAfterRetrieval(s); got != tt.want {
			t.Errorf("DecideAfterRetrieval(%q) = %s, want %s", tt.class, got, tt.want)
		}
	}
}

func TestCheckExec(t *testing.T) {
	t.Parallel()
	ok := &core.QueryResult{Success: true}
	failed := core.FailedQuery("no such table: x")

	tests := []struct {
		name    string
		result  *core.QueryResult
		repairs int
		want    core.Branch
	}{
		{"success", ok, 0, core.BranchSuccess},
		{"success at budget", ok, core.MaxRepairs, core.BranchSuccess},
		{"failure with budget", failed, 0, core.BranchRetry},
		{"failure with last repair", failed, core.MaxRepairs - 1, core.BranchRetry},
		{"failure at budget", failed, core.MaxRepairs, core.BranchFail},
		{"missing result with budget", nil, 1, core.BranchRetry},
		{"missing result at budget", nil, core.MaxRepairs, core.BranchFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestState(testutil.WithQueryResult(tt.result), testutil.WithRepairCount(tt.repairs))
			if got := CheckExec(s); got != tt.want {
				t.Errorf("CheckExec() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		valid   bool
		repairs int
		want    core.Branch
	}{
		{"valid", true, 0, core.BranchValid},
		{"invalid with budget", false, 1, core.BranchInvalid},
		{"invalid at budget", false, core.MaxRepairs, core.BranchValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestState(testutil.WithRepairCount(tt.repairs))
			s.IsValid = tt.valid
			if got := CheckValidation(s); got != tt.want {
				t.Errorf("CheckValidation() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGraph_Successor(t *testing.T) {
	t.Parallel()
	g := DefaultGraph()

	next, branch, err := g.Successor(core.StepRoute, testutil.NewTestState())
	if err != nil || next != core.StepRetrieve || branch != "" {
		t.Errorf("route -> (%s, %q, %v), want (retrieve, \"\", nil)", next, branch, err)
	}

	s := testutil.NewTestState(testutil.WithClassification(core.ClassificationRAG))
	next, branch, err = g.Successor(core.StepRetrieve, s)
	if err != nil || next != core.StepSynthesize || branch != core.BranchRAGOnly {
		t.Errorf("retrieve(rag) -> (%s, %q, %v), want (synthesize, rag_only, nil)", next, branch, err)
	}

	next, _, _ = g.Successor(core.StepRepair, s)
	if next != EntryStep {
		t.Errorf("repair -> %s, want %s", next, EntryStep)
	}

	if _, _, err := g.Successor(core.StepEnd, s); err == nil {
		t.Error("expected error resolving from the terminal marker")
	}
}

func TestGraph_SuccessorUnmappedBranch(t *testing.T) {
	t.Parallel()
	g := Graph{
		core.StepRoute: {
			Select:   func(core.WorkflowState) core.Branch { return "nowhere" },
			Branches: map[core.Branch]core.Step{core.BranchValid: core.StepEnd},
		},
	}
	_, branch, err := g.Successor(core.StepRoute, testutil.NewTestState())
	if err == nil {
		t.Fatal("expected error for unmapped branch")
	}
	if branch != "nowhere" {
		t.Errorf("branch = %q, want nowhere", branch)
	}
}

func TestGraph_ValidateErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		graph Graph
		want  string
	}{
		{
			name:  "no entry",
			graph: Graph{core.StepValidate: {Next: core.StepEnd}},
			want:  "no entry step",
		},
		{
			name:  "unknown target",
			graph: Graph{core.StepRoute: {Next: core.StepRetrieve}},
			want:  "unknown step",
		},
		{
			name: "never terminates",
			graph: Graph{
				core.StepRoute:    {Next: core.StepRetrieve},
				core.StepRetrieve: {Next: core.StepRoute},
			},
			want: "never reaches",
		},
		{
			name: "empty branches",
			graph: Graph{
				core.StepRoute: {Select: DecideAfterRetrieval},
			},
			want: "no branches",
		},
		{
			name:  "missing successor",
			graph: Graph{core.StepRoute: {}},
			want:  "no successor",
		},
		{
			name: "terminal with transition",
			graph: Graph{
				core.StepRoute: {Next: core.StepEnd},
				core.StepEnd:   {Next: core.StepRoute},
			},
			want: "terminal marker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
