// Package sqlstore executes generated queries against a read-only SQLite
// database and describes its schema for query generation.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// DefaultMaxOpenConns is used when no pool size is configured.
const DefaultMaxOpenConns = 4

const objectsQuery = "SELECT name, type, sql FROM sqlite_master WHERE type = 'table' OR type = 'view'"

// Store implements core.Store over a SQLite file opened read-only.
type Store struct {
	path         string
	db           *sql.DB
	maxOpenConns int
	logger       *logging.Logger
}

// Option configures the store.
type Option func(*Store)

// WithMaxOpenConns bounds the connection pool, normally to the number of
// batch workers.
func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the database at path. The file must exist; writes are
// rejected at the connection level.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:         path,
		maxOpenConns: DefaultMaxOpenConns,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrNotFound("database", path)
		}
		return nil, fmt.Errorf("checking database: %w", err)
	}
	if info.IsDir() {
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("database path %s is a directory", path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(abs))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("pinging database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s.db = db

	s.logger.Debug("sqlstore: opened database", "path", path, "max_open_conns", s.maxOpenConns)
	return s, nil
}

// dsn builds a SQLite URI for an absolute path.
func dsn(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// MaxOpenConns returns the connection pool bound.
func (s *Store) MaxOpenConns() int { return s.maxOpenConns }

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Execute runs query and returns its rows. Errors never escape: they are
// reported through a result with Success false.
func (s *Store) Execute(ctx context.Context, query string) core.QueryResult {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Debug("sqlstore: query failed", "error", err)
		return *core.FailedQuery(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return *core.FailedQuery(err.Error())
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return *core.FailedQuery(err.Error())
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return *core.FailedQuery(err.Error())
	}

	return core.QueryResult{
		Success:  true,
		Columns:  columns,
		Rows:     out,
		RowCount: len(out),
	}
}

// normalize converts driver values into JSON-friendly ones.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Object is one table or view from sqlite_master.
type Object struct {
	Name string `json:"name"`
	Type string `json:"type"`
	SQL  string `json:"sql"`
}

// Objects lists tables and views in creation order.
func (s *Store) Objects(ctx context.Context) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx, objectsQuery)
	if err != nil {
		return nil, core.ErrExecution(core.CodeSchemaUnreadable, "reading schema").WithCause(err)
	}
	defer rows.Close()

	objs := make([]Object, 0)
	for rows.Next() {
		var o Object
		var ddl sql.NullString
		if err := rows.Scan(&o.Name, &o.Type, &ddl); err != nil {
			return nil, core.ErrExecution(core.CodeSchemaUnreadable, "reading schema").WithCause(err)
		}
		o.SQL = ddl.String
		objs = append(objs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrExecution(core.CodeSchemaUnreadable, "reading schema").WithCause(err)
	}
	return objs, nil
}

// Schema describes every table and view as "Table/View: <name>" followed by
// its DDL, one blank line between entries.
func (s *Store) Schema(ctx context.Context) (string, error) {
	objs, err := s.Objects(ctx)
	if err != nil {
		return "", err
	}
	return FormatSchema(objs), nil
}

// TableNames lists tables and views in creation order.
func (s *Store) TableNames(ctx context.Context) ([]string, error) {
	objs, err := s.Objects(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name
	}
	return names, nil
}

var _ core.Store = (*Store)(nil)
