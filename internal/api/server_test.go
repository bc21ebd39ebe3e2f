package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

const testSchema = "Table/View: orders\nSQL: CREATE TABLE orders (id INTEGER)\n"

func newTestServer(t *testing.T, mock *testutil.MockCollaborators, opts ...ServerOption) *httptest.Server {
	t.Helper()
	runner, err := workflow.NewRunner(workflow.RunnerDeps{
		Config:        workflow.DefaultRunnerConfig(),
		Collaborators: mock.Collaborators(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(runner, mock, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sqlMock() *testutil.MockCollaborators {
	return testutil.NewMockCollaborators().
		WithClassification("sql").
		WithSchema(testSchema, "orders", "customers", "customer_totals").
		WithQuery("SELECT COUNT(*) AS count FROM orders").
		WithRows([]string{"count"}, map[string]any{"count": int64(5)}).
		WithAnswer(core.IntAnswer(5), "5 orders")
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_Answer(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp := post(t, srv.URL+"/api/v1/answer", `{"id":"q1","question":"How many orders?","format_hint":"int"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeBody[core.Result](t, resp)
	assert.Equal(t, "q1", res.ID)
	v, ok := res.FinalAnswer.Int()
	assert.True(t, ok)
	assert.EqualValues(t, 5, v)
	assert.Equal(t, "SELECT COUNT(*) AS count FROM orders", res.SQL)
	assert.NotNil(t, res.Citations)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestServer_AnswerGeneratesID(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp := post(t, srv.URL+"/api/v1/answer", `{"question":"How many orders?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[core.Result](t, resp)
	assert.Len(t, res.ID, 36)
}

func TestServer_AnswerWithTrace(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp := post(t, srv.URL+"/api/v1/answer?trace=true", `{"id":"q1","question":"How many orders?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[AnswerResponse](t, resp)
	assert.Equal(t, "q1", body.Result.ID)
	require.NotEmpty(t, body.Trace)
	require.GreaterOrEqual(t, len(body.Trace), 2)
	assert.Equal(t, core.StepRoute, body.Trace[0].Step)
	assert.Equal(t, core.StepRetrieve, body.Trace[1].Step)
	assert.Equal(t, core.BranchSQLOnly, body.Trace[1].Branch)
}

func TestServer_AnswerRejectsBadInput(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"question":`, http.StatusBadRequest},
		{"blank question", `{"id":"q","question":"  "}`, http.StatusUnprocessableEntity},
		{"missing question", `{"id":"q"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/v1/answer", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeBody[map[string]string](t, resp)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_Batch(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp := post(t, srv.URL+"/api/v1/batch", `{"questions":[
		{"id":"a","question":"How many orders?"},
		{"id":"b","question":"How many orders again?"},
		{"question":"And once more?"}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[BatchResponse](t, resp)
	require.Len(t, body.Results, 3)
	assert.Equal(t, "a", body.Results[0].ID)
	assert.Equal(t, "b", body.Results[1].ID)
	assert.NotEmpty(t, body.Results[2].ID)
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, 0, body.Summary.Failed)
}

func TestServer_BatchLimits(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock(), WithMaxBatch(2))

	resp := post(t, srv.URL+"/api/v1/batch", `{"questions":[{"question":"a"},{"question":"b"},{"question":"c"}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/batch", `{"questions":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_BatchInvalidQuestionsAnsweredInPlace(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp := post(t, srv.URL+"/api/v1/batch", `{"questions":[
		{"id":"x","question":"How many orders?"},
		{"id":"x","question":"Same id again?"},
		{"id":"y","question":"  "}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[BatchResponse](t, resp)
	require.Len(t, body.Results, 3)
	assert.Equal(t, "x", body.Results[0].ID)
	assert.Greater(t, body.Results[0].Confidence, 0.0)

	assert.Equal(t, "question-1", body.Results[1].ID)
	assert.Contains(t, body.Results[1].Explanation, `duplicate id "x"`)
	assert.Equal(t, "y", body.Results[2].ID)
	assert.Contains(t, body.Results[2].Explanation, "question is blank")
	for _, r := range body.Results[1:] {
		assert.Zero(t, r.Confidence)
		assert.True(t, r.FinalAnswer.IsNull())
	}
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, 2, body.Summary.Failed)
}

func TestServer_Schema(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock())

	resp, err := http.Get(srv.URL + "/api/v1/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	etag := resp.Header.Get("ETag")
	assert.NotEmpty(t, etag)
	body := decodeBody[SchemaResponse](t, resp)
	assert.Equal(t, testSchema, body.Schema)
	assert.Equal(t, []string{"orders", "customers", "customer_totals"}, body.Tables)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/schema?match=cust", nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	filtered := decodeBody[SchemaResponse](t, resp2)
	assert.ElementsMatch(t, []string{"customers", "customer_totals"}, filtered.Tables)

	req.Header.Set("If-None-Match", etag)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp3.StatusCode)
}

func TestServer_SchemaError(t *testing.T) {
	t.Parallel()
	mock := sqlMock().WithSchemaError(core.ErrExecution(core.CodeSchemaUnreadable, "locked"))
	srv := newTestServer(t, mock)

	resp, err := http.Get(srv.URL + "/api/v1/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hybridqa_up 1\n"))
	})
	srv := newTestServer(t, sqlMock(), WithMetrics(metrics))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Equal(t, "hybridqa_up 1\n", buf.String())

	plain := newTestServer(t, sqlMock())
	resp2, err := http.Get(plain.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, sqlMock(), WithCORSOrigins([]string{"https://dash.example.com"}))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dash.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_ListenAndServeStops(t *testing.T) {
	t.Parallel()
	s := NewServer(nil, sqlMock())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", 0, 0) }()
	cancel()
	err := <-done
	assert.NoError(t, err)
}
