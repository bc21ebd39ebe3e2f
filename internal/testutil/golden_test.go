package testutil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

// recordingTB captures failures so golden mismatches can be asserted on.
type recordingTB struct {
	testing.TB
	errors []string
	fatal  bool
}

func (r *recordingTB) Helper()                   {}
func (r *recordingTB) Logf(string, ...any)       {}
func (r *recordingTB) Errorf(f string, a ...any) { r.errors = append(r.errors, fmt.Sprintf(f, a...)) }
func (r *recordingTB) Fatalf(f string, a ...any) {
	r.fatal = true
	r.errors = append(r.errors, fmt.Sprintf(f, a...))
}

func writeGolden(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".golden"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestGolden_MatchIgnoresLineEndingsAndTrailingSpace(t *testing.T) {
	dir := t.TempDir()
	writeGolden(t, dir, "schema", "Table/View: orders\nSQL: CREATE TABLE orders (id INTEGER)\n")

	rec := &recordingTB{TB: t}
	testutil.NewGolden(rec, dir).AssertString("schema", "Table/View: orders  \r\nSQL: CREATE TABLE orders (id INTEGER)")
	testutil.AssertLen(t, rec.errors, 0)
}

func TestGolden_MismatchNamesLine(t *testing.T) {
	dir := t.TempDir()
	writeGolden(t, dir, "schema", "Table/View: orders\nSQL: CREATE TABLE orders (id INTEGER)\n")

	rec := &recordingTB{TB: t}
	testutil.NewGolden(rec, dir).AssertString("schema", "Table/View: orders\nSQL: CREATE TABLE orders (id TEXT)")
	testutil.AssertLen(t, rec.errors, 1)
	testutil.AssertContains(t, rec.errors[0], "schema mismatch (line 2)")
	testutil.AssertFalse(t, rec.fatal, "mismatch is not fatal")
}

func TestGolden_MissingFile(t *testing.T) {
	rec := &recordingTB{TB: t}
	g := testutil.NewGolden(rec, t.TempDir())
	g.AssertString("absent", "anything")

	testutil.AssertTrue(t, rec.fatal, "missing golden file is fatal")
	testutil.AssertContains(t, rec.errors[0], "-update")
	testutil.AssertContains(t, g.Path("absent"), "absent.golden")
}

func TestTempDir(t *testing.T) {
	dir := testutil.TempDir(t)
	if dir == "" {
		t.Fatal("expected non-empty temp dir")
	}
}

func TestTempFile(t *testing.T) {
	dir := testutil.TempDir(t)
	path := testutil.TempFile(t, dir, "test.txt", "hello")
	if path == "" {
		t.Fatal("expected non-empty path")
	}
}

func TestNewTestState(t *testing.T) {
	state := testutil.NewTestState()
	testutil.AssertEqual(t, state.QuestionID, "q-test")
	testutil.AssertTrue(t, state.FinalAnswer.IsNull(), "answer starts null")
	testutil.AssertLen(t, state.Citations, 0)
}

func TestNewTestState_WithOptions(t *testing.T) {
	state := testutil.NewTestState(
		testutil.WithFormatHint("int"),
		testutil.WithRepairCount(2),
		testutil.WithClassification(core.ClassificationSQL),
	)
	testutil.AssertEqual(t, state.FormatHint, "int")
	testutil.AssertEqual(t, state.RepairCount, 2)
	testutil.AssertEqual(t, state.Classification, core.ClassificationSQL)
}

func TestSalesDB(t *testing.T) {
	path := testutil.SalesDB(t)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("fixture db missing: %v", err)
	}
}

func TestDocCorpus(t *testing.T) {
	dir := testutil.DocCorpus(t)
	for _, name := range []string{"returns.md", "kpi.md", "guides/shipping.md", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("corpus file %s missing: %v", name, err)
		}
	}
}
