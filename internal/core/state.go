package core

// MaxRepairs bounds the number of repair cycles per question. Both the
// execution check and the validation check stop requesting repairs once the
// counter reaches it, which is what guarantees the workflow terminates.
const MaxRepairs = 2

// Doc is a retrieved document chunk.
type Doc struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// QueryResult is the outcome of executing a generated query. Failures are
// data: Success is false and Error carries the message.
type QueryResult struct {
	Success  bool             `json:"success"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Error    string           `json:"error,omitempty"`
}

// FailedQuery builds the structured result for a query that could not run.
func FailedQuery(msg string) *QueryResult {
	return &QueryResult{
		Success: false,
		Error:   msg,
		Columns: []string{},
		Rows:    []map[string]any{},
	}
}

// Clone returns a deep copy of the column and row slices.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Columns = append([]string(nil), r.Columns...)
	if r.Rows != nil {
		out.Rows = make([]map[string]any, len(r.Rows))
		for i, row := range r.Rows {
			cp := make(map[string]any, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out.Rows[i] = cp
		}
	}
	return &out
}

// WorkflowState is the snapshot that flows through one workflow run.
// Question, FormatHint and QuestionID are fixed at creation; every other
// field is replaced wholesale by Merge.
type WorkflowState struct {
	Question   string
	FormatHint string
	QuestionID string

	Classification Classification // empty until routed
	RelevantDocs   []Doc
	GeneratedQuery string // empty means no query
	QueryResult    *QueryResult
	FinalAnswer    Answer
	Explanation    string
	Citations      []string
	IsValid        bool
	RepairCount    int
}

// NewWorkflowState creates the initial snapshot for a question.
func NewWorkflowState(q Question) WorkflowState {
	return WorkflowState{
		Question:     q.Question,
		FormatHint:   q.FormatHint,
		QuestionID:   q.ID,
		RelevantDocs: []Doc{},
		FinalAnswer:  NullAnswer(),
		Citations:    []string{},
	}
}

// QuerySucceeded reports whether a query ran and succeeded.
func (s WorkflowState) QuerySucceeded() bool {
	return s.QueryResult != nil && s.QueryResult.Success
}

// QueryFailed reports whether a query ran and failed. A missing result is
// neither a success nor a failure.
func (s WorkflowState) QueryFailed() bool {
	return s.QueryResult != nil && !s.QueryResult.Success
}

// Clone returns a copy that shares no slices with s.
func (s WorkflowState) Clone() WorkflowState {
	out := s
	out.RelevantDocs = append([]Doc(nil), s.RelevantDocs...)
	out.Citations = append([]string(nil), s.Citations...)
	out.QueryResult = s.QueryResult.Clone()
	return out
}

// Field is an optional assignment carried by a StateUpdate.
type Field[T any] struct {
	value T
	set   bool
}

// Set marks a field for assignment.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// StateUpdate is the partial result of a step. Unset fields leave the
// state untouched; set fields replace the previous value, including nil.
type StateUpdate struct {
	Classification Field[Classification]
	RelevantDocs   Field[[]Doc]
	GeneratedQuery Field[string]
	QueryResult    Field[*QueryResult]
	FinalAnswer    Field[Answer]
	Explanation    Field[string]
	Citations      Field[[]string]
	IsValid        Field[bool]
	RepairCount    Field[int]
}

// Fields lists the names of the fields an update assigns.
func (u StateUpdate) Fields() []string {
	var names []string
	if u.Classification.set {
		names = append(names, "classification")
	}
	if u.RelevantDocs.set {
		names = append(names, "relevant_docs")
	}
	if u.GeneratedQuery.set {
		names = append(names, "generated_query")
	}
	if u.QueryResult.set {
		names = append(names, "query_result")
	}
	if u.FinalAnswer.set {
		names = append(names, "final_answer")
	}
	if u.Explanation.set {
		names = append(names, "explanation")
	}
	if u.Citations.set {
		names = append(names, "citations")
	}
	if u.IsValid.set {
		names = append(names, "is_valid")
	}
	if u.RepairCount.set {
		names = append(names, "repair_count")
	}
	return names
}

// Merge applies an update and returns the new snapshot; s is not modified.
// RepairCount never decreases and never exceeds MaxRepairs.
func (s WorkflowState) Merge(u StateUpdate) WorkflowState {
	next := s.Clone()

	if v, ok := u.Classification.Get(); ok {
		next.Classification = v
	}
	if v, ok := u.RelevantDocs.Get(); ok {
		next.RelevantDocs = append([]Doc{}, v...)
	}
	if v, ok := u.GeneratedQuery.Get(); ok {
		next.GeneratedQuery = v
	}
	if v, ok := u.QueryResult.Get(); ok {
		next.QueryResult = v.Clone()
	}
	if v, ok := u.FinalAnswer.Get(); ok {
		next.FinalAnswer = v
	}
	if v, ok := u.Explanation.Get(); ok {
		next.Explanation = v
	}
	if v, ok := u.Citations.Get(); ok {
		next.Citations = append([]string{}, v...)
	}
	if v, ok := u.IsValid.Get(); ok {
		next.IsValid = v
	}
	if v, ok := u.RepairCount.Get(); ok {
		if v > next.RepairCount {
			next.RepairCount = v
		}
		if next.RepairCount > MaxRepairs {
			next.RepairCount = MaxRepairs
		}
	}

	return next
}
