package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files from the current output")

// Golden compares text output, such as schema dumps, against files named
// <name>.golden under a testdata directory. Run the tests with -update to
// rewrite them.
type Golden struct {
	t   testing.TB
	dir string
}

// NewGolden returns a golden helper reading from dir.
func NewGolden(t testing.TB, dir string) *Golden {
	return &Golden{t: t, dir: dir}
}

// Path returns the file backing name.
func (g *Golden) Path(name string) string {
	return filepath.Join(g.dir, name+".golden")
}

// AssertString compares actual with the golden file after normalizing
// line endings and trailing whitespace on both sides.
func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()
	path := g.Path(name)

	if *update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("creating golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(normalize(actual)+"\n"), 0o644); err != nil {
			g.t.Fatalf("writing golden file: %v", err)
		}
		g.t.Logf("updated %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		g.t.Fatalf("reading golden file %s: %v (run with -update to create it)", path, err)
		return
	}
	if got, exp := normalize(actual), normalize(string(want)); got != exp {
		g.t.Errorf("%s mismatch (line %d):\n--- want ---\n%s\n--- got ---\n%s",
			name, firstDiffLine(exp, got), exp, got)
	}
}

func normalize(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// firstDiffLine returns the 1-based line where a and b first differ.
func firstDiffLine(a, b string) int {
	al, bl := strings.Split(a, "\n"), strings.Split(b, "\n")
	for i := 0; i < len(al) && i < len(bl); i++ {
		if al[i] != bl[i] {
			return i + 1
		}
	}
	return min(len(al), len(bl)) + 1
}
