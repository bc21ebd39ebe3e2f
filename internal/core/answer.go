package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKind tags the shape held by an Answer.
type AnswerKind string

const (
	AnswerNull    AnswerKind = "null"
	AnswerInt     AnswerKind = "int"
	AnswerFloat   AnswerKind = "float"
	AnswerRecords AnswerKind = "records"
	AnswerRecord  AnswerKind = "record"
	AnswerText    AnswerKind = "text"
	AnswerOther   AnswerKind = "other"
)

// Answer is the final answer value of a question. Exactly one payload is
// meaningful, selected by Kind. The zero value is a null answer.
type Answer struct {
	kind    AnswerKind
	i       int64
	f       float64
	records []map[string]any
	record  map[string]any
	text    string
	other   any
}

// NullAnswer returns an answer with no value.
func NullAnswer() Answer { return Answer{kind: AnswerNull} }

// IntAnswer wraps an integer.
func IntAnswer(v int64) Answer { return Answer{kind: AnswerInt, i: v} }

// FloatAnswer wraps a floating point number.
func FloatAnswer(v float64) Answer { return Answer{kind: AnswerFloat, f: v} }

// RecordsAnswer wraps a sequence of records.
func RecordsAnswer(v []map[string]any) Answer {
	if v == nil {
		v = []map[string]any{}
	}
	return Answer{kind: AnswerRecords, records: v}
}

// RecordAnswer wraps a single record.
func RecordAnswer(v map[string]any) Answer {
	if v == nil {
		v = map[string]any{}
	}
	return Answer{kind: AnswerRecord, record: v}
}

// TextAnswer wraps free text.
func TextAnswer(v string) Answer { return Answer{kind: AnswerText, text: v} }

// OtherAnswer wraps any value that fits none of the other shapes
// (booleans, lists of scalars, ...).
func OtherAnswer(v any) Answer { return Answer{kind: AnswerOther, other: v} }

// Kind returns the shape tag. The zero Answer reports AnswerNull.
func (a Answer) Kind() AnswerKind {
	if a.kind == "" {
		return AnswerNull
	}
	return a.kind
}

// IsNull reports whether the answer carries no value.
func (a Answer) IsNull() bool { return a.Kind() == AnswerNull }

// Int returns the integer payload.
func (a Answer) Int() (int64, bool) { return a.i, a.kind == AnswerInt }

// Float returns the numeric payload for int and float answers.
func (a Answer) Float() (float64, bool) {
	switch a.kind {
	case AnswerFloat:
		return a.f, true
	case AnswerInt:
		return float64(a.i), true
	default:
		return 0, false
	}
}

// Records returns the record-sequence payload.
func (a Answer) Records() ([]map[string]any, bool) { return a.records, a.kind == AnswerRecords }

// Record returns the record payload.
func (a Answer) Record() (map[string]any, bool) { return a.record, a.kind == AnswerRecord }

// Text returns the text payload.
func (a Answer) Text() (string, bool) { return a.text, a.kind == AnswerText }

// Value returns the payload as a plain Go value.
func (a Answer) Value() any {
	switch a.Kind() {
	case AnswerInt:
		return a.i
	case AnswerFloat:
		return a.f
	case AnswerRecords:
		return a.records
	case AnswerRecord:
		return a.record
	case AnswerText:
		return a.text
	case AnswerOther:
		return a.other
	default:
		return nil
	}
}

// String renders the answer for logs.
func (a Answer) String() string {
	if a.Kind() == AnswerText {
		return a.text
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("%v", a.Value())
	}
	return string(b)
}

// MarshalJSON encodes the payload itself, not the wrapper.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

// UnmarshalJSON decodes any JSON value into the matching shape.
func (a *Answer) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*a = AnswerFromValue(v)
	return nil
}

// AnswerFromValue classifies a decoded value. json.Number values written
// without a fraction or exponent become integers; 30.0 stays a float.
func AnswerFromValue(v any) Answer {
	switch t := v.(type) {
	case nil:
		return NullAnswer()
	case Answer:
		return t
	case int:
		return IntAnswer(int64(t))
	case int8:
		return IntAnswer(int64(t))
	case int16:
		return IntAnswer(int64(t))
	case int32:
		return IntAnswer(int64(t))
	case int64:
		return IntAnswer(t)
	case uint8:
		return IntAnswer(int64(t))
	case uint16:
		return IntAnswer(int64(t))
	case uint32:
		return IntAnswer(int64(t))
	case float32:
		return FloatAnswer(float64(t))
	case float64:
		return FloatAnswer(t)
	case json.Number:
		return numberAnswer(t)
	case string:
		return TextAnswer(t)
	case map[string]any:
		return RecordAnswer(t)
	case []map[string]any:
		return RecordsAnswer(t)
	case []any:
		records := make([]map[string]any, 0, len(t))
		for _, item := range t {
			rec, ok := item.(map[string]any)
			if !ok {
				return OtherAnswer(t)
			}
			records = append(records, rec)
		}
		return RecordsAnswer(records)
	default:
		return OtherAnswer(t)
	}
}

func numberAnswer(n json.Number) Answer {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return IntAnswer(i)
		}
	}
	if f, err := n.Float64(); err == nil {
		return FloatAnswer(f)
	}
	return TextAnswer(s)
}
