package testutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

func TestMockModel_Name(t *testing.T) {
	mock := testutil.NewMockModel("test-model")
	testutil.AssertEqual(t, mock.Name(), "test-model")
}

func TestMockModel_Generate(t *testing.T) {
	mock := testutil.NewMockModel("test")

	out, err := mock.Generate(context.Background(), core.ModelRequest{Prompt: "hi"})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out, "ok")
	testutil.AssertEqual(t, mock.CallCount("Generate"), 1)
}

func TestMockModel_WithResponse(t *testing.T) {
	mock := testutil.NewMockModel("test").WithResponse("custom response")

	out, err := mock.Generate(context.Background(), core.ModelRequest{})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out, "custom response")
}

func TestMockModel_WithTaskResponses(t *testing.T) {
	mock := testutil.NewMockModel("test").WithTaskResponses(map[string]string{
		core.TaskClassify: "sql",
	})

	out, _ := mock.Generate(context.Background(), core.ModelRequest{Task: core.TaskClassify})
	testutil.AssertEqual(t, out, "sql")

	out, _ = mock.Generate(context.Background(), core.ModelRequest{Task: core.TaskSQL})
	testutil.AssertEqual(t, out, "")
}

func TestMockModel_WithError(t *testing.T) {
	expectedErr := errors.New("test error")
	mock := testutil.NewMockModel("test").WithError(expectedErr)

	_, err := mock.Generate(context.Background(), core.ModelRequest{})

	testutil.AssertError(t, err)
	if !errors.Is(err, expectedErr) {
		t.Errorf("got error %v, want %v", err, expectedErr)
	}
}

func TestMockModel_CallsAndReset(t *testing.T) {
	mock := testutil.NewMockModel("test")
	_, _ = mock.Generate(context.Background(), core.ModelRequest{Task: core.TaskSQL})

	calls := mock.Calls()
	testutil.AssertLen(t, calls, 1)
	req, ok := calls[0].Args.(core.ModelRequest)
	testutil.AssertTrue(t, ok, "args should be the request")
	testutil.AssertEqual(t, req.Task, core.TaskSQL)

	mock.Reset()
	testutil.AssertEqual(t, mock.CallCount("Generate"), 0)
}

func TestMockCollaborators_Defaults(t *testing.T) {
	mock := testutil.NewMockCollaborators()
	collab := mock.Collaborators()
	testutil.AssertNoError(t, collab.Validate())

	ctx := context.Background()
	label, err := collab.Classifier.Classify(ctx, "q")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, label, "hybrid")

	res := collab.Executor.Execute(ctx, "SELECT 1")
	testutil.AssertTrue(t, res.Success, "default execution succeeds")
	testutil.AssertEqual(t, mock.CallCount("Execute"), 1)
}

func TestMockCollaborators_Overrides(t *testing.T) {
	mock := testutil.NewMockCollaborators().
		WithClassification("sql").
		WithQuery("SELECT COUNT(*) FROM orders").
		WithRows([]string{"n"}, map[string]any{"n": int64(5)}).
		WithSchema("Table: orders", "orders").
		WithDocs(core.Doc{ID: "kpi::chunk0", Score: 0.4})

	ctx := context.Background()
	q, _ := mock.GenerateQuery(ctx, core.QueryRequest{})
	testutil.AssertEqual(t, q, "SELECT COUNT(*) FROM orders")

	res := mock.Execute(ctx, q)
	testutil.AssertEqual(t, res.RowCount, 1)

	tables, _ := mock.TableNames(ctx)
	testutil.AssertLen(t, tables, 1)

	docs, _ := mock.Retrieve(ctx, "q", 3)
	testutil.AssertEqual(t, docs[0].ID, "kpi::chunk0")
}

func TestMockCollaborators_QueryError(t *testing.T) {
	mock := testutil.NewMockCollaborators().WithQueryError("no such table: x")
	res := mock.Execute(context.Background(), "SELECT * FROM x")
	testutil.AssertFalse(t, res.Success, "execution should fail")
	testutil.AssertEqual(t, res.Error, "no such table: x")
}

func TestRecordingObserver(t *testing.T) {
	obs := testutil.NewRecordingObserver()
	obs.StepCompleted(core.StepRoute, "", time.Millisecond)
	obs.StepCompleted(core.StepExecQuery, core.BranchRetry, time.Millisecond)
	obs.Degraded(core.StepRetrieve, testutil.ErrTest)
	obs.QuestionAnswered(core.Result{ID: "q1"}, 1, time.Second)

	testutil.AssertLen(t, obs.Steps(), 2)
	testutil.AssertEqual(t, obs.Steps()[1].Branch, core.BranchRetry)
	testutil.AssertEqual(t, obs.DegradedCount(core.StepRetrieve), 1)
	testutil.AssertEqual(t, obs.Answered()[0].ID, "q1")
	testutil.AssertEqual(t, obs.Repairs()[0], 1)
}
