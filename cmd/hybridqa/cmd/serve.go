package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/retrieval"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/api"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering HTTP API",
	Long: `Start an HTTP server exposing:

  POST /api/v1/answer   answer one question (?trace=true adds the step trace)
  POST /api/v1/batch    answer up to server.max_batch questions
  GET  /api/v1/schema   tables and schema text (?match= fuzzy filter)
  GET  /health          liveness
  GET  /metrics         Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the document index when docs change")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("data.watch", serveCmd.Flags().Lookup("watch"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(c *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(c.Context())
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	if tfidf, ok := app.Retriever.(*retrieval.TFIDF); ok && app.Config.Data.Watch {
		go func() {
			if err := tfidf.Watch(ctx, 0); err != nil {
				app.Logger.Warn("docs watcher stopped", "error", err)
			}
		}()
	}

	cfg := app.Config.Server
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)

	server := api.NewServer(app.Runner, app.Store,
		api.WithLogger(app.Logger),
		api.WithBatchRunner(app.Batch),
		api.WithMetrics(app.Metrics.Handler()),
		api.WithMaxBatch(cfg.MaxBatch),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithRequestTimeout(writeTimeout),
	)
	return server.ListenAndServe(ctx, cfg.Addr, readTimeout, writeTimeout)
}
