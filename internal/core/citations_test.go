package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitations(t *testing.T) {
	t.Parallel()

	tables := []string{"orders", "customers", "products"}
	docs := []Doc{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		name      string
		query     string
		succeeded bool
		docs      []Doc
		want      []string
	}{
		{
			name:      "table and docs",
			query:     "SELECT COUNT(*) FROM orders",
			succeeded: true,
			docs:      docs,
			want:      []string{"a", "b", "orders"},
		},
		{
			name:      "case insensitive",
			query:     "select * from ORDERS join Customers using (id)",
			succeeded: true,
			docs:      nil,
			want:      []string{"customers", "orders"},
		},
		{
			name:      "failed query drops tables",
			query:     "SELECT * FROM orders",
			succeeded: false,
			docs:      docs,
			want:      []string{"a", "b"},
		},
		{
			name:      "no query",
			query:     "",
			succeeded: false,
			docs:      docs,
			want:      []string{"a", "b"},
		},
		{
			name:      "duplicate doc ids",
			query:     "",
			succeeded: false,
			docs:      []Doc{{ID: "b"}, {ID: "a"}, {ID: "b"}, {ID: ""}},
			want:      []string{"a", "b"},
		},
		{
			name:      "nothing",
			query:     "",
			succeeded: false,
			docs:      nil,
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCitations(tt.query, tt.succeeded, tables, tt.docs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCitations_Deterministic(t *testing.T) {
	t.Parallel()

	tables := []string{"orders"}
	docs := []Doc{{ID: "b"}, {ID: "a"}}
	first := ExtractCitations("SELECT * FROM orders", true, tables, docs)

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ExtractCitations("SELECT * FROM orders", true, tables, docs))
	}
}

func TestTablesInQuery_SubstringOverMatch(t *testing.T) {
	t.Parallel()

	got := TablesInQuery("SELECT * FROM order_details", []string{"order", "order_details", "details"})
	assert.ElementsMatch(t, []string{"order", "order_details", "details"}, got)
}
