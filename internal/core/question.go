package core

// Question is one input record.
type Question struct {
	ID         string `json:"id" validate:"required"`
	Question   string `json:"question" validate:"required,max=100000"`
	FormatHint string `json:"format_hint"`
}

// Result is the output record for a question.
type Result struct {
	ID          string   `json:"id"`
	FinalAnswer Answer   `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`

	// Debug is only written when output.include_debug is enabled.
	Debug *ResultDebug `json:"debug,omitempty"`
}

// ResultDebug carries workflow internals for troubleshooting.
type ResultDebug struct {
	Classification Classification `json:"classification"`
	RepairCount    int            `json:"repair_count"`
	IsValid        bool           `json:"is_valid"`
	Steps          []string       `json:"steps"`
	QueryError     string         `json:"query_error,omitempty"`
}

// FailedResult is reported when a question could not be processed at all.
// Confidence is zero so downstream consumers can filter these out.
func FailedResult(id string, err error) Result {
	return Result{
		ID:          id,
		FinalAnswer: NullAnswer(),
		Confidence:  0,
		Explanation: "question could not be processed: " + err.Error(),
		Citations:   []string{},
	}
}
