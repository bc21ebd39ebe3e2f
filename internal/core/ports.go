package core

import "context"

// =============================================================================
// Model Port
// =============================================================================

// Model is a text-generation backend (hosted API, local CLI or offline stub).
type Model interface {
	// Name returns the backend identifier (e.g., "openai", "heuristic").
	Name() string

	// Generate runs one prompt and returns the raw completion text.
	Generate(ctx context.Context, req ModelRequest) (string, error)
}

// ModelRequest configures one generation call.
type ModelRequest struct {
	// Task names the collaborator issuing the call ("classify", "sql", "synthesize").
	// Offline backends use it to pick a canned response.
	Task         string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
	// JSON asks the backend for a JSON object when it supports that mode.
	JSON bool
}

// Model tasks.
const (
	TaskClassify   = "classify"
	TaskSQL        = "sql"
	TaskSynthesize = "synthesize"
)

// =============================================================================
// Collaborator Ports
// =============================================================================

// Classifier maps a question to a routing label. Any label outside
// {rag, sql, hybrid} is treated as hybrid by the caller.
type Classifier interface {
	Classify(ctx context.Context, question string) (string, error)
}

// QueryGenerator turns a question into a query against the relational store.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, req QueryRequest) (string, error)
}

// QueryRequest is the input of query generation.
type QueryRequest struct {
	Question string
	Schema   string
	Docs     []Doc
}

// Synthesizer produces the final answer from the gathered evidence.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (Synthesis, error)
}

// SynthesisRequest is the input of answer synthesis. QueryResult is nil
// when no query ran.
type SynthesisRequest struct {
	Question    string
	QueryResult *QueryResult
	Docs        []Doc
	FormatHint  string
}

// Synthesis is the synthesizer's output.
type Synthesis struct {
	Answer      Answer
	Explanation string
}

// Retriever ranks document chunks by similarity to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Doc, error)
}

// QueryExecutor runs a query against the relational store. It never
// returns an error: failures come back as a QueryResult with Success false.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) QueryResult
}

// SchemaSource introspects the relational store.
type SchemaSource interface {
	// Schema returns a textual description of every table and view.
	Schema(ctx context.Context) (string, error)

	// TableNames lists the tables and views.
	TableNames(ctx context.Context) ([]string, error)
}

// Store is a relational store that can both execute and describe itself.
type Store interface {
	QueryExecutor
	SchemaSource
}

// Collaborators bundles the services a workflow run depends on.
type Collaborators struct {
	Classifier     Classifier
	QueryGenerator QueryGenerator
	Synthesizer    Synthesizer
	Retriever      Retriever
	Executor       QueryExecutor
	Schema         SchemaSource
}

// Validate reports the first missing collaborator.
func (c Collaborators) Validate() error {
	switch {
	case c.Classifier == nil:
		return ErrValidation(CodeInvalidConfig, "classifier is required")
	case c.QueryGenerator == nil:
		return ErrValidation(CodeInvalidConfig, "query generator is required")
	case c.Synthesizer == nil:
		return ErrValidation(CodeInvalidConfig, "synthesizer is required")
	case c.Retriever == nil:
		return ErrValidation(CodeInvalidConfig, "retriever is required")
	case c.Executor == nil:
		return ErrValidation(CodeInvalidConfig, "query executor is required")
	case c.Schema == nil:
		return ErrValidation(CodeInvalidConfig, "schema source is required")
	}
	return nil
}
