package sqlstore

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

func openSales(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), testutil.SalesDB(t), WithMaxOpenConns(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestOpen_Directory(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestStore_Execute(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	res := s.Execute(context.Background(), "SELECT COUNT(*) AS n FROM orders")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"n"}, res.Columns)
	assert.Equal(t, 1, res.RowCount)
	assert.EqualValues(t, 5, res.Rows[0]["n"])
}

func TestStore_ExecuteTypes(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	res := s.Execute(context.Background(), "SELECT sku, price, notes FROM products ORDER BY sku")
	require.True(t, res.Success, res.Error)
	require.Equal(t, 2, res.RowCount)

	assert.Equal(t, "A-1", res.Rows[0]["sku"])
	assert.InDelta(t, 120.0, res.Rows[0]["price"], 1e-9)
	assert.Equal(t, "hi", res.Rows[0]["notes"], "blobs are returned as strings")
	assert.Nil(t, res.Rows[1]["notes"])
}

func TestStore_ExecuteEmpty(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	res := s.Execute(context.Background(), "SELECT * FROM orders WHERE total > 1000")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.RowCount)
	assert.NotNil(t, res.Rows)
	assert.Len(t, res.Columns, 4)
}

func TestStore_ExecuteFailureIsData(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"missing table", "SELECT * FROM ordrs", "no such table"},
		{"syntax", "SELEC 1", "syntax error"},
		{"write rejected", "DELETE FROM orders", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Execute(context.Background(), tt.query)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Contains(t, res.Error, tt.want)
			assert.Equal(t, 0, res.RowCount)
			assert.NotNil(t, res.Rows)
			assert.NotNil(t, res.Columns)
		})
	}

	after := s.Execute(context.Background(), "SELECT COUNT(*) AS n FROM orders")
	assert.EqualValues(t, 5, after.Rows[0]["n"], "write must not have been applied")
}

func TestStore_ExecuteCancelled(t *testing.T) {
	t.Parallel()
	s := openSales(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Execute(ctx, "SELECT 1")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestStore_Schema(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	schema, err := s.Schema(context.Background())
	require.NoError(t, err)

	var want []string
	names := []string{"customers", "orders", "products", "customer_totals"}
	for i, ddl := range testutil.SalesSchema {
		want = append(want, "Table/View: "+names[i]+"\nSQL: "+ddl+"\n")
	}
	assert.Equal(t, strings.Join(want, "\n"), schema)
}

func TestStore_TableNames(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	names, err := s.TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "products", "customer_totals"}, names)
}

func TestStore_Objects(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	objs, err := s.Objects(context.Background())
	require.NoError(t, err)
	require.Len(t, objs, 4)
	assert.Equal(t, Object{Name: "orders", Type: "table", SQL: testutil.SalesSchema[1]}, objs[1])
	assert.Equal(t, "view", objs[3].Type)
	assert.Equal(t, FormatSchema(objs[:1]), "Table/View: customers\nSQL: "+testutil.SalesSchema[0]+"\n")
}

func TestMatchObjects(t *testing.T) {
	t.Parallel()
	objs := []Object{{Name: "customers"}, {Name: "orders"}, {Name: "products"}, {Name: "customer_totals"}}

	got := MatchObjects(objs, "ord")
	require.Len(t, got, 1)
	assert.Equal(t, "orders", got[0].Name)

	assert.Len(t, MatchObjects(objs, "  "), 4)
	assert.Empty(t, MatchObjects(objs, "zzz"))

	names := MatchNames([]string{"customers", "orders", "customer_totals"}, "cust")
	assert.ElementsMatch(t, []string{"customers", "customer_totals"}, names)
}

func TestStore_ConcurrentQueries(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.Execute(context.Background(), "SELECT customer_id, total FROM customer_totals ORDER BY customer_id")
			if !res.Success || res.RowCount != 3 {
				errs <- res.Error
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent query failed: %q", e)
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()
	got := dsn("/data/sales db.sqlite")
	assert.True(t, strings.HasPrefix(got, "file:///data/sales%20db.sqlite?"), got)
	assert.Contains(t, got, "mode=ro")
	assert.Contains(t, got, "query_only")
}

func TestStore_SchemaGolden(t *testing.T) {
	t.Parallel()
	s := openSales(t)

	schema, err := s.Schema(context.Background())
	require.NoError(t, err)
	testutil.NewGolden(t, "testdata").AssertString("sales_schema", schema)
}
