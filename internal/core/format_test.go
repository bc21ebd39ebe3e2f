package core

import "testing"

func TestValidateAnswerFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer Answer
		hint   string
		want   bool
	}{
		{"int ok", IntAnswer(7), "int", true},
		{"int rejects float", FloatAnswer(7.5), "int", false},
		{"int rejects text", TextAnswer("7"), "int", false},
		{"int rejects null", NullAnswer(), "int", false},
		{"int hint trimmed", IntAnswer(7), "  int\n", true},
		{"float accepts int", IntAnswer(7), "float", true},
		{"float accepts float", FloatAnswer(7.5), "float", true},
		{"float rejects text", TextAnswer("7.5"), "float", false},
		{"records ok", RecordsAnswer([]map[string]any{{"a": 1}}), "list[{a:1}]", true},
		{"records empty ok", RecordsAnswer(nil), "list[{sku: str}]", true},
		{"records rejects text", TextAnswer("text"), "list[{a:1}]", false},
		{"records rejects record", RecordAnswer(map[string]any{"a": 1}), "list[{a:1}]", false},
		{"records rejects nil element", RecordsAnswer([]map[string]any{nil}), "list[{a:1}]", false},
		{"records rejects scalar list", OtherAnswer([]any{1, 2}), "list[{a:1}]", false},
		{"record ok", RecordAnswer(map[string]any{"a": 1}), "{a: int}", true},
		{"record rejects records", RecordsAnswer([]map[string]any{{"a": 1}}), "{a: int}", false},
		{"free text", TextAnswer("anything"), "free text", true},
		{"free text null", NullAnswer(), "free text", true},
		{"empty hint", FloatAnswer(1), "", true},
		{"list of scalars hint", TextAnswer("x"), "list[int]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAnswerFormat(tt.answer, tt.hint); got != tt.want {
				t.Errorf("ValidateAnswerFormat(%s, %q) = %v, want %v", tt.answer, tt.hint, got, tt.want)
			}
		})
	}
}
