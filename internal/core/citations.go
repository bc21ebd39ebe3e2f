package core

import (
	"sort"
	"strings"
)

// ExtractCitations returns the evidence identifiers for an answer: every
// known table whose name appears (case-insensitively) in the query, but only
// when that query succeeded, plus the id of every retrieved doc.
//
// Table matching is a plain substring test, so "order" also matches a query
// over "order_details". The result is deduplicated and sorted.
func ExtractCitations(query string, querySucceeded bool, tables []string, docs []Doc) []string {
	seen := make(map[string]struct{}, len(tables)+len(docs))
	out := make([]string, 0, len(docs)+2)

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if querySucceeded {
		for _, t := range TablesInQuery(query, tables) {
			add(t)
		}
	}
	for _, d := range docs {
		add(d.ID)
	}

	sort.Strings(out)
	return out
}

// TablesInQuery lists the tables whose names occur in query.
func TablesInQuery(query string, tables []string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	lower := strings.ToLower(query)
	var found []string
	for _, t := range tables {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			found = append(found, t)
		}
	}
	return found
}
