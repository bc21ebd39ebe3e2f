package testutil

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// ErrTest is a generic test error.
var ErrTest = errors.New("test error")

// TempDir creates a temporary directory for tests.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "hybridqa-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// TempFile creates a temporary file with content.
func TempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// AssertNoError fails if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails if got != want.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// AssertContains fails if s does not contain substr.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expected %q to contain %q", s, substr)
	}
}

// AssertNotContains fails if s contains substr.
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Fatalf("expected %q to not contain %q", s, substr)
	}
}

// AssertLen fails if len(s) != want.
func AssertLen[T any](t *testing.T, s []T, want int) {
	t.Helper()
	if len(s) != want {
		t.Fatalf("len() = %d, want %d", len(s), want)
	}
}

// AssertTrue fails if b is false.
func AssertTrue(t *testing.T, b bool, msg string) {
	t.Helper()
	if !b {
		t.Fatalf("expected true: %s", msg)
	}
}

// AssertFalse fails if b is true.
func AssertFalse(t *testing.T, b bool, msg string) {
	t.Helper()
	if b {
		t.Fatalf("expected false: %s", msg)
	}
}

// SalesSchema is the DDL of the SalesDB fixture, in creation order.
var SalesSchema = []string{
	"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, country TEXT)",
	"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id), total REAL, placed_at TEXT)",
	"CREATE TABLE products (sku TEXT PRIMARY KEY, name TEXT, price REAL, notes BLOB)",
	"CREATE VIEW customer_totals AS SELECT customer_id, SUM(total) AS total FROM orders GROUP BY customer_id",
}

var salesRows = []string{
	"INSERT INTO customers VALUES (1, 'Alice', 'ES'), (2, 'Bob', 'FR'), (3, 'Chen', 'ES')",
	"INSERT INTO orders VALUES (1, 1, 10.5, '2024-01-03'), (2, 1, 20.0, '2024-01-09'), (3, 2, 7.25, '2024-02-01'), (4, 3, 99.0, '2024-02-14'), (5, 3, 1.0, '2024-03-01')",
	"INSERT INTO products VALUES ('A-1', 'Anvil', 120.0, X'6869'), ('B-2', 'Bolt', 0.5, NULL)",
}

// SalesDB creates a small SQLite database with customers, orders and
// products and returns its path. The orders table holds 5 rows.
func SalesDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(TempDir(t), "sales.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening fixture db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, stmt := range append(append([]string{}, SalesSchema...), salesRows...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("building fixture db: %s: %v", stmt, err)
		}
	}
	return path
}

// DocCorpus writes a small markdown corpus and returns its directory.
// Only .md files are meant to be indexed; notes.txt is a decoy.
func DocCorpus(t *testing.T) string {
	t.Helper()
	dir := TempDir(t)
	files := map[string]string{
		"returns.md":         "# Returns policy\n\nUnopened products can be returned within 30 days of delivery.\n\nRefunds are issued to the original payment method within 5 business days.",
		"kpi.md":             "# KPI definitions\n\nAverage order value is the sum of order totals divided by the number of orders.\n\nA repeat customer is a customer with more than one order.",
		"guides/shipping.md": "Orders ship from Madrid.\n\nShipping to France takes three days.",
		"notes.txt":          "This file is not markdown and mentions returns.",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating directory: %v", err)
		}
		TempFile(t, filepath.Dir(path), filepath.Base(path), content)
	}
	return dir
}
