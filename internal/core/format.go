package core

import "strings"

// Format hint keywords understood by ValidateAnswerFormat.
const (
	FormatInt          = "int"
	FormatFloat        = "float"
	FormatRecordsBegin = "list[{"
	FormatRecordBegin  = "{"
)

// ValidateAnswerFormat reports whether answer matches the shape described
// by formatHint. Unknown hints accept any answer. A fault while checking
// counts as invalid.
func ValidateAnswerFormat(answer Answer, formatHint string) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			valid = false
		}
	}()

	hint := strings.TrimSpace(formatHint)
	switch {
	case hint == FormatInt:
		return answer.Kind() == AnswerInt
	case hint == FormatFloat:
		k := answer.Kind()
		return k == AnswerInt || k == AnswerFloat
	case strings.HasPrefix(hint, FormatRecordsBegin):
		records, ok := answer.Records()
		if !ok {
			return false
		}
		for _, r := range records {
			if r == nil {
				return false
			}
		}
		return true
	case strings.HasPrefix(hint, FormatRecordBegin):
		return answer.Kind() == AnswerRecord
	default:
		return true
	}
}
