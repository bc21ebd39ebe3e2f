package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")
	sqlFence    = regexp.MustCompile("(?is)```\\s*sql\\s*\\n?(.*?)```")
	sqlStart    = regexp.MustCompile(`(?i)\b(WITH|SELECT)\b`)
	labelWord   = regexp.MustCompile(`(?i)\b(rag|sql|hybrid)\b`)
)

// StripFences returns the body of the first fenced code block, or s
// unchanged when there is none.
func StripFences(s string) string {
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// ExtractJSON finds the first balanced JSON object or array in mixed text.
func ExtractJSON(output string) string {
	start := strings.IndexAny(output, "{[")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	openChar := output[start]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	for i := start; i < len(output); i++ {
		c := output[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return output[start : i+1]
			}
		}
	}
	return ""
}

// ParseLabel extracts a routing label. It accepts a JSON object with a
// "classification" or "label" key, or a bare word; anything else is
// returned as-is for the workflow to normalize.
func ParseLabel(output string) string {
	body := StripFences(output)
	if obj := ExtractJSON(body); strings.HasPrefix(obj, "{") {
		var v map[string]any
		if json.Unmarshal([]byte(obj), &v) == nil {
			for _, key := range []string{"classification", "label", "route"} {
				if s, ok := v[key].(string); ok {
					return s
				}
			}
		}
	}
	if m := labelWord.FindString(body); m != "" {
		return strings.ToLower(m)
	}
	return body
}

// ParseSQL extracts one SQL statement. A ```sql block wins; otherwise any
// fenced block, then a JSON object with a "sql" or "query" key, then the
// text from the first SELECT or WITH keyword. Unfenced output without
// either keyword yields "". Trailing semicolons are dropped.
func ParseSQL(output string) string {
	var stmt string
	switch {
	case sqlFence.MatchString(output):
		stmt = sqlFence.FindStringSubmatch(output)[1]
	case fencedBlock.MatchString(output):
		stmt = fencedBlock.FindStringSubmatch(output)[1]
	default:
		stmt = output
		if obj := ExtractJSON(output); strings.HasPrefix(obj, "{") {
			var v map[string]any
			if json.Unmarshal([]byte(obj), &v) == nil {
				for _, key := range []string{"sql", "query", "sql_query"} {
					if s, ok := v[key].(string); ok {
						stmt = s
						break
					}
				}
			}
		}
		loc := sqlStart.FindStringIndex(stmt)
		if loc == nil {
			return ""
		}
		stmt = stmt[loc[0]:]
	}
	stmt = strings.TrimSpace(stmt)
	return strings.TrimSpace(strings.TrimRight(stmt, "; \n\t"))
}

// ParseSynthesis decodes an answer and explanation. It accepts a JSON
// object with an "answer" (or "final_answer") key, a bare JSON value, or
// plain text. The answer is coerced toward the format hint when the model
// wrote a number as a string.
func ParseSynthesis(output, formatHint string) (core.Synthesis, error) {
	body := StripFences(output)
	if body == "" {
		return core.Synthesis{}, core.ErrCollaborator(core.CodeEmptyOutput, "synthesizer returned empty output")
	}

	if obj := ExtractJSON(body); strings.HasPrefix(obj, "{") {
		var v map[string]json.RawMessage
		if decodeNumbers([]byte(obj), &v) == nil {
			raw, ok := v["answer"]
			if !ok {
				raw, ok = v["final_answer"]
			}
			if ok {
				var answer core.Answer
				if err := json.Unmarshal(raw, &answer); err != nil {
					return core.Synthesis{}, core.ErrCollaborator(core.CodeUnparseable, "answer is not valid JSON").WithCause(err)
				}
				var explanation string
				if e, ok := v["explanation"]; ok {
					_ = json.Unmarshal(e, &explanation)
				}
				return core.Synthesis{
					Answer:      CoerceAnswer(answer, formatHint),
					Explanation: explanation,
				}, nil
			}
		}
	}

	var answer core.Answer
	if err := json.Unmarshal([]byte(body), &answer); err == nil {
		return core.Synthesis{Answer: CoerceAnswer(answer, formatHint)}, nil
	}
	return core.Synthesis{Answer: CoerceAnswer(core.TextAnswer(body), formatHint)}, nil
}

// CoerceAnswer converts a numeric string into a number when the format
// hint asks for one. Other answers are returned unchanged.
func CoerceAnswer(a core.Answer, formatHint string) core.Answer {
	text, ok := a.Text()
	if !ok {
		return a
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	switch strings.TrimSpace(formatHint) {
	case core.FormatInt:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return core.IntAnswer(i)
		}
	case core.FormatFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return core.FloatAnswer(f)
		}
	}
	return a
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
