package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// callLog is the call recorder shared by the mocks.
type callLog struct {
	mu    sync.Mutex
	calls []MockCall
}

// Calls returns recorded calls.
func (l *callLog) Calls() []MockCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MockCall{}, l.calls...)
}

// CallCount returns number of calls to a method.
func (l *callLog) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, c := range l.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears call history.
func (l *callLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = make([]MockCall, 0)
}

func (l *callLog) recordCall(method string, args interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// MockModel implements core.Model for testing.
type MockModel struct {
	callLog
	name         string
	generateFunc func(context.Context, core.ModelRequest) (string, error)
}

// NewMockModel creates a new mock model that echoes "ok".
func NewMockModel(name string) *MockModel {
	return &MockModel{name: name}
}

// Name returns the mock name.
func (m *MockModel) Name() string {
	return m.name
}

// Generate mocks a completion.
func (m *MockModel) Generate(ctx context.Context, req core.ModelRequest) (string, error) {
	m.recordCall("Generate", req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return "ok", nil
}

// WithGenerateFunc sets a custom generate function.
func (m *MockModel) WithGenerateFunc(fn func(context.Context, core.ModelRequest) (string, error)) *MockModel {
	m.generateFunc = fn
	return m
}

// WithResponse configures a fixed response.
func (m *MockModel) WithResponse(output string) *MockModel {
	m.generateFunc = func(context.Context, core.ModelRequest) (string, error) {
		return output, nil
	}
	return m
}

// WithTaskResponses answers per task; unknown tasks get an empty string.
func (m *MockModel) WithTaskResponses(byTask map[string]string) *MockModel {
	m.generateFunc = func(_ context.Context, req core.ModelRequest) (string, error) {
		return byTask[req.Task], nil
	}
	return m
}

// WithError configures the mock to return an error.
func (m *MockModel) WithError(err error) *MockModel {
	m.generateFunc = func(context.Context, core.ModelRequest) (string, error) {
		return "", err
	}
	return m
}

// MockCollaborators implements every collaborator port with overridable
// behaviour. The defaults describe a healthy hybrid run that answers "ok".
type MockCollaborators struct {
	callLog
	classifyFunc   func(context.Context, string) (string, error)
	generateFunc   func(context.Context, core.QueryRequest) (string, error)
	synthesizeFunc func(context.Context, core.SynthesisRequest) (core.Synthesis, error)
	retrieveFunc   func(context.Context, string, int) ([]core.Doc, error)
	executeFunc    func(context.Context, string) core.QueryResult
	schemaFunc     func(context.Context) (string, error)
	tablesFunc     func(context.Context) ([]string, error)
}

// NewMockCollaborators creates collaborators with default behaviour.
func NewMockCollaborators() *MockCollaborators {
	return &MockCollaborators{}
}

// Collaborators returns m bound to every port.
func (m *MockCollaborators) Collaborators() core.Collaborators {
	return core.Collaborators{
		Classifier:     m,
		QueryGenerator: m,
		Synthesizer:    m,
		Retriever:      m,
		Executor:       m,
		Schema:         m,
	}
}

// Classify mocks routing.
func (m *MockCollaborators) Classify(ctx context.Context, question string) (string, error) {
	m.recordCall("Classify", question)
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, question)
	}
	return string(core.ClassificationHybrid), nil
}

// GenerateQuery mocks query generation.
func (m *MockCollaborators) GenerateQuery(ctx context.Context, req core.QueryRequest) (string, error) {
	m.recordCall("GenerateQuery", req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return "SELECT 1", nil
}

// Synthesize mocks answer synthesis.
func (m *MockCollaborators) Synthesize(ctx context.Context, req core.SynthesisRequest) (core.Synthesis, error) {
	m.recordCall("Synthesize", req)
	if m.synthesizeFunc != nil {
		return m.synthesizeFunc(ctx, req)
	}
	return core.Synthesis{Answer: core.TextAnswer("ok"), Explanation: "mock"}, nil
}

// Retrieve mocks retrieval.
func (m *MockCollaborators) Retrieve(ctx context.Context, query string, topK int) ([]core.Doc, error) {
	m.recordCall("Retrieve", query)
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, query, topK)
	}
	return []core.Doc{}, nil
}

// Execute mocks query execution.
func (m *MockCollaborators) Execute(ctx context.Context, query string) core.QueryResult {
	m.recordCall("Execute", query)
	if m.executeFunc != nil {
		return m.executeFunc(ctx, query)
	}
	return core.QueryResult{
		Success:  true,
		Columns:  []string{"1"},
		Rows:     []map[string]any{{"1": int64(1)}},
		RowCount: 1,
	}
}

// Schema mocks schema description.
func (m *MockCollaborators) Schema(ctx context.Context) (string, error) {
	m.recordCall("Schema", nil)
	if m.schemaFunc != nil {
		return m.schemaFunc(ctx)
	}
	return "", nil
}

// TableNames mocks table listing.
func (m *MockCollaborators) TableNames(ctx context.Context) ([]string, error) {
	m.recordCall("TableNames", nil)
	if m.tablesFunc != nil {
		return m.tablesFunc(ctx)
	}
	return nil, nil
}

// WithClassification configures a fixed routing label.
func (m *MockCollaborators) WithClassification(label string) *MockCollaborators {
	m.classifyFunc = func(context.Context, string) (string, error) { return label, nil }
	return m
}

// WithClassifyFunc sets a custom classify function.
func (m *MockCollaborators) WithClassifyFunc(fn func(context.Context, string) (string, error)) *MockCollaborators {
	m.classifyFunc = fn
	return m
}

// WithQuery configures a fixed generated query.
func (m *MockCollaborators) WithQuery(query string) *MockCollaborators {
	m.generateFunc = func(context.Context, core.QueryRequest) (string, error) { return query, nil }
	return m
}

// WithGenerateFunc sets a custom query generation function.
func (m *MockCollaborators) WithGenerateFunc(fn func(context.Context, core.QueryRequest) (string, error)) *MockCollaborators {
	m.generateFunc = fn
	return m
}

// WithAnswer configures a fixed synthesized answer.
func (m *MockCollaborators) WithAnswer(answer core.Answer, explanation string) *MockCollaborators {
	m.synthesizeFunc = func(context.Context, core.SynthesisRequest) (core.Synthesis, error) {
		return core.Synthesis{Answer: answer, Explanation: explanation}, nil
	}
	return m
}

// WithSynthesizeFunc sets a custom synthesis function.
func (m *MockCollaborators) WithSynthesizeFunc(fn func(context.Context, core.SynthesisRequest) (core.Synthesis, error)) *MockCollaborators {
	m.synthesizeFunc = fn
	return m
}

// WithDocs configures the retrieved documents.
func (m *MockCollaborators) WithDocs(docs ...core.Doc) *MockCollaborators {
	m.retrieveFunc = func(context.Context, string, int) ([]core.Doc, error) {
		return append([]core.Doc{}, docs...), nil
	}
	return m
}

// WithRetrieveFunc sets a custom retrieval function.
func (m *MockCollaborators) WithRetrieveFunc(fn func(context.Context, string, int) ([]core.Doc, error)) *MockCollaborators {
	m.retrieveFunc = fn
	return m
}

// WithRows configures a successful execution returning rows.
func (m *MockCollaborators) WithRows(columns []string, rows ...map[string]any) *MockCollaborators {
	m.executeFunc = func(context.Context, string) core.QueryResult {
		return core.QueryResult{
			Success:  true,
			Columns:  columns,
			Rows:     rows,
			RowCount: len(rows),
		}
	}
	return m
}

// WithQueryError configures every execution to fail with msg.
func (m *MockCollaborators) WithQueryError(msg string) *MockCollaborators {
	m.executeFunc = func(context.Context, string) core.QueryResult {
		return *core.FailedQuery(msg)
	}
	return m
}

// WithExecuteFunc sets a custom execution function.
func (m *MockCollaborators) WithExecuteFunc(fn func(context.Context, string) core.QueryResult) *MockCollaborators {
	m.executeFunc = fn
	return m
}

// WithSchema configures the schema description and table names.
func (m *MockCollaborators) WithSchema(schema string, tables ...string) *MockCollaborators {
	m.schemaFunc = func(context.Context) (string, error) { return schema, nil }
	m.tablesFunc = func(context.Context) ([]string, error) { return append([]string{}, tables...), nil }
	return m
}

// WithSchemaError makes both schema calls fail.
func (m *MockCollaborators) WithSchemaError(err error) *MockCollaborators {
	m.schemaFunc = func(context.Context) (string, error) { return "", err }
	m.tablesFunc = func(context.Context) ([]string, error) { return nil, err }
	return m
}

// ObservedStep is a StepCompleted event.
type ObservedStep struct {
	Step   core.Step
	Branch core.Branch
}

// RecordingObserver captures workflow events.
type RecordingObserver struct {
	mu       sync.Mutex
	steps    []ObservedStep
	degraded map[core.Step]int
	answered []core.Result
	repairs  []int
}

// NewRecordingObserver creates an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{degraded: make(map[core.Step]int)}
}

// StepCompleted records a step.
func (o *RecordingObserver) StepCompleted(step core.Step, branch core.Branch, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, ObservedStep{Step: step, Branch: branch})
}

// Degraded records a collaborator failure.
func (o *RecordingObserver) Degraded(step core.Step, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded[step]++
}

// QuestionAnswered records a finished question.
func (o *RecordingObserver) QuestionAnswered(r core.Result, repairs int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.answered = append(o.answered, r)
	o.repairs = append(o.repairs, repairs)
}

// Steps returns the observed steps in order.
func (o *RecordingObserver) Steps() []ObservedStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ObservedStep{}, o.steps...)
}

// DegradedCount returns how many times step degraded.
func (o *RecordingObserver) DegradedCount(step core.Step) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.degraded[step]
}

// Answered returns every finished question result.
func (o *RecordingObserver) Answered() []core.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.Result{}, o.answered...)
}

// Repairs returns the repair count reported with each result.
func (o *RecordingObserver) Repairs() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int{}, o.repairs...)
}
