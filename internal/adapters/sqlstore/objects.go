package sqlstore

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// FormatSchema renders objects the way Schema does.
func FormatSchema(objs []Object) string {
	entries := make([]string, len(objs))
	for i, o := range objs {
		entries[i] = fmt.Sprintf("Table/View: %s\nSQL: %s\n", o.Name, o.SQL)
	}
	return strings.Join(entries, "\n")
}

// MatchNames returns the names that fuzzy-match pattern, best match first.
// An empty pattern returns names unchanged.
func MatchNames(names []string, pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return names
	}
	matches := fuzzy.Find(pattern, names)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

// MatchObjects filters objs by fuzzy-matching their names, best match first.
func MatchObjects(objs []Object, pattern string) []Object {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return objs
	}
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name
	}
	matches := fuzzy.Find(pattern, names)
	out := make([]Object, len(matches))
	for i, m := range matches {
		out[i] = objs[m.Index]
	}
	return out
}
