package retrieval

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// DefaultChunkTable holds embedded chunks when no table is configured.
const DefaultChunkTable = "hybridqa_chunks"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PGVector ranks chunks stored in Postgres by L2 distance between
// embeddings. Score is 1/(1+distance).
type PGVector struct {
	pool     *pgxpool.Pool
	table    string
	embedder Embedder
	logger   *logging.Logger
}

// PGVectorOption configures the retriever.
type PGVectorOption func(*PGVector)

// WithTable sets the chunk table.
func WithTable(table string) PGVectorOption {
	return func(p *PGVector) {
		if table != "" {
			p.table = table
		}
	}
}

// WithPGVectorLogger sets the retriever logger.
func WithPGVectorLogger(logger *logging.Logger) PGVectorOption {
	return func(p *PGVector) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPGVector connects to dsn and verifies the connection.
func NewPGVector(ctx context.Context, dsn string, embedder Embedder, opts ...PGVectorOption) (*PGVector, error) {
	if embedder == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "pgvector retrieval needs an embedder")
	}
	p := &PGVector{table: DefaultChunkTable, embedder: embedder, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if !tableName.MatchString(p.table) {
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("invalid table name %q", p.table))
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.ErrNetwork("postgres unreachable").WithCause(err)
	}
	p.pool = pool
	return p, nil
}

// Close releases the pool.
func (p *PGVector) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PGVector) ident() string {
	return pgx.Identifier{p.table}.Sanitize()
}

// EnsureSchema creates the vector extension and chunk table.
func (p *PGVector) EnsureSchema(ctx context.Context, dims int) error {
	if dims <= 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "embedding dimensions must be positive")
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, p.ident(), dims),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing chunk table: %w", err)
		}
	}
	return nil
}

// Index embeds and upserts chunks, returning how many were written.
func (p *PGVector) Index(ctx context.Context, chunks []Chunk) (int, error) {
	query := fmt.Sprintf(`INSERT INTO %s (id, source, content, embedding) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET source = EXCLUDED.source, content = EXCLUDED.content, embedding = EXCLUDED.embedding`, p.ident())

	written := 0
	for _, c := range chunks {
		emb, err := p.embedder.Embed(ctx, c.Content, PurposeDocument)
		if err != nil {
			return written, fmt.Errorf("embedding %s: %w", c.ID, err)
		}
		if _, err := p.pool.Exec(ctx, query, c.ID, c.Source, c.Content, pgvector.NewVector(emb)); err != nil {
			return written, fmt.Errorf("storing %s: %w", c.ID, err)
		}
		written++
	}
	p.logger.Info("retrieval: indexed chunks", "table", p.table, "chunks", written, "embedder", p.embedder.Name())
	return written, nil
}

// Retrieve returns the topK nearest chunks to query.
func (p *PGVector) Retrieve(ctx context.Context, query string, topK int) ([]core.Doc, error) {
	if topK <= 0 {
		topK = core.DefaultTopK
	}
	emb, err := p.embedder.Embed(ctx, query, PurposeQuery)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		fmt.Sprintf("SELECT id, source, content, embedding <-> $1 AS distance FROM %s ORDER BY distance LIMIT $2", p.ident()),
		pgvector.NewVector(emb), topK)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbour query: %w", err)
	}
	defer rows.Close()

	docs := make([]core.Doc, 0, topK)
	for rows.Next() {
		var d core.Doc
		var distance float64
		if err := rows.Scan(&d.ID, &d.Source, &d.Content, &distance); err != nil {
			return nil, fmt.Errorf("reading neighbour: %w", err)
		}
		d.Score = DistanceScore(distance)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nearest neighbour query: %w", err)
	}
	return docs, nil
}

// DistanceScore maps an L2 distance onto (0, 1], 1 meaning identical.
func DistanceScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

var _ core.Retriever = (*PGVector)(nil)
