// Package batchio reads question batches and writes result batches as
// JSON Lines.
package batchio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/fsutil"
)

// MaxLineBytes bounds a single input record.
const MaxLineBytes = 4 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Record is one input question. Err is set when the question was rejected;
// a rejected record is reported as a failed result in its input position
// instead of being answered.
type Record struct {
	// Line is the 1-based input line, or the slice index for CheckBatch.
	Line     int
	Question core.Question
	Err      error
}

// Accepted reports whether the record should be answered.
func (r Record) Accepted() bool { return r.Err == nil }

// ReadQuestionsFile reads a JSONL question file.
func ReadQuestionsFile(path string) ([]Record, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrNotFound("batch file", path)
		}
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	return ReadQuestions(bytes.NewReader(data))
}

// ReadQuestions decodes one question per non-blank line. Lines that cannot
// be decoded, fail validation or repeat an earlier id come back as rejected
// records; only a read failure returns an error. A rejected record whose id
// is missing or repeated is renamed to "line-<n>".
func ReadQuestions(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	var records []Record
	firstSeen := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec := Record{Line: lineNo}
		if err := json.Unmarshal(line, &rec.Question); err != nil {
			rec.Question = core.Question{ID: lineID(lineNo)}
			rec.Err = lineError(lineNo, "invalid JSON: "+err.Error())
			records = append(records, rec)
			continue
		}
		msg := normalize(&rec.Question)
		if prev, dup := firstSeen[rec.Question.ID]; dup && rec.Question.ID != "" {
			msg = fmt.Sprintf("duplicate id %q (first seen on line %d)", rec.Question.ID, prev)
			rec.Question.ID = ""
		} else if rec.Question.ID != "" {
			firstSeen[rec.Question.ID] = lineNo
		}
		if msg != "" {
			if rec.Question.ID == "" {
				rec.Question.ID = lineID(lineNo)
			}
			rec.Err = lineError(lineNo, msg)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, lineError(lineNo+1, fmt.Sprintf("line exceeds %d bytes", MaxLineBytes))
		}
		return nil, fmt.Errorf("reading batch: %w", err)
	}
	return records, nil
}

// CheckQuestion trims q in place and reports why it cannot be answered.
func CheckQuestion(q *core.Question) error {
	if msg := normalize(q); msg != "" {
		return core.ErrValidation(core.CodeInvalidInput, msg)
	}
	return nil
}

// CheckBatch checks every question in place. Invalid questions and repeated
// ids come back as rejected records; a rejected question whose id is missing
// or repeated is renamed to "question-<index>".
func CheckBatch(questions []core.Question) []Record {
	records := make([]Record, len(questions))
	firstSeen := make(map[string]int, len(questions))
	for i := range questions {
		q := questions[i]
		msg := normalize(&q)
		if prev, dup := firstSeen[q.ID]; dup && q.ID != "" {
			msg = fmt.Sprintf("duplicate id %q (first seen at %d)", q.ID, prev)
			q.ID = ""
		} else if q.ID != "" {
			firstSeen[q.ID] = i
		}
		records[i] = Record{Line: i, Question: q}
		if msg != "" {
			if q.ID == "" {
				records[i].Question.ID = fmt.Sprintf("question-%d", i)
			}
			records[i].Err = core.ErrValidation(core.CodeInvalidInput, fmt.Sprintf("question %d: %s", i, msg)).
				WithDetail("index", i)
		}
		questions[i] = records[i].Question
	}
	return records
}

// Accepted returns the questions to answer, in input order.
func Accepted(records []Record) []core.Question {
	qs := make([]core.Question, 0, len(records))
	for _, rec := range records {
		if rec.Accepted() {
			qs = append(qs, rec.Question)
		}
	}
	return qs
}

// Merge places answered results back between the rejected records.
// answered holds one result per accepted record, in order.
func Merge(records []Record, answered []core.Result) []core.Result {
	out := make([]core.Result, 0, len(records))
	next := 0
	for _, rec := range records {
		if !rec.Accepted() {
			out = append(out, core.FailedResult(rec.Question.ID, rec.Err))
			continue
		}
		if next < len(answered) {
			out = append(out, answered[next])
		} else {
			out = append(out, core.FailedResult(rec.Question.ID,
				core.ErrExecution(core.CodeDegraded, "no result for accepted question")))
		}
		next++
	}
	return out
}

func normalize(q *core.Question) string {
	q.ID = strings.TrimSpace(q.ID)
	q.FormatHint = strings.TrimSpace(q.FormatHint)
	if err := validate.Struct(q); err != nil {
		return describeValidation(err)
	}
	if strings.TrimSpace(q.Question) == "" {
		return "question is blank"
	}
	return ""
}

func lineID(line int) string { return fmt.Sprintf("line-%d", line) }

func lineError(line int, msg string) error {
	return core.ErrValidation(core.CodeInvalidInput, fmt.Sprintf("line %d: %s", line, msg)).
		WithDetail("line", line)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
