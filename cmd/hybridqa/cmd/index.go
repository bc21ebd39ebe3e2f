package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load the document corpus into pgvector",
	Long: `Chunk the documents under data.docs_dir, embed every chunk and upsert it
into the retrieval.pgvector table, creating the table when missing. Only
needed with retrieval.backend = pgvector; the tfidf backend indexes in memory.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Retrieval.PGVector.DSN == "" {
		return fmt.Errorf("retrieval.pgvector.dsn is not configured")
	}
	logger, logClose, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logClose() }()

	ctx, cancel := signalContext(c.Context())
	defer cancel()

	chunks, err := retrieval.LoadChunks(cfg.Data.DocsDir, cfg.Data.Include)
	if err != nil {
		return err
	}

	embedder, err := retrieval.NewEmbedder(embedderConfig(cfg))
	if err != nil {
		return err
	}
	pg, err := retrieval.NewPGVector(ctx, cfg.Retrieval.PGVector.DSN, embedder,
		retrieval.WithTable(cfg.Retrieval.PGVector.Table),
		retrieval.WithPGVectorLogger(logger),
	)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx, cfg.Retrieval.PGVector.Dimensions); err != nil {
		return err
	}
	n, err := pg.Index(ctx, chunks)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "Indexed %d chunks from %s\n", n, cfg.Data.DocsDir)
	return nil
}
