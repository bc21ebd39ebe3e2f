package core

import "testing"

func TestParseClassification(t *testing.T) {
	tests := []struct {
		in   string
		want Classification
	}{
		{"sql", ClassificationSQL},
		{"rag", ClassificationRAG},
		{"hybrid", ClassificationHybrid},
		{" SQL\n", ClassificationSQL},
		{`"rag"`, ClassificationRAG},
		{"rag.", ClassificationRAG},
		{"", ClassificationHybrid},
		{"database", ClassificationHybrid},
		{"sql or rag", ClassificationHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseClassification(tt.in); got != tt.want {
				t.Errorf("ParseClassification(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStep(t *testing.T) {
	for _, s := range AllSteps() {
		got, err := ParseStep(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStep(%q) = %q, %v", s, got, err)
		}
		if s.Description() == "Unknown step" {
			t.Errorf("step %s has no description", s)
		}
	}
	if _, err := ParseStep("end"); err != nil {
		t.Errorf("end marker should parse: %v", err)
	}
	if _, err := ParseStep("bogus"); err == nil {
		t.Errorf("expected error for unknown step")
	}
}
