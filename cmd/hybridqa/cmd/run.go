package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/batchio"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/config"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
)

var (
	runBatchFile string
	runOutFile   string
	runWorkers   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer a batch of questions",
	Long: `Read questions from a JSONL file (one {"id", "question", "format_hint"}
object per line), answer them concurrently and write one result per line to
the output file. Lines that are not valid questions, or that repeat an
earlier id, are written as zero-confidence results in their input position
and do not stop the rest of the batch.`,
	Example: `  hybridqa run --batch questions.jsonl --out results.jsonl
  hybridqa run --batch questions.jsonl --out results.jsonl --workers 8`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVar(&runBatchFile, "batch", "", "input JSONL file (required)")
	runCmd.Flags().StringVar(&runOutFile, "out", "", "output JSONL file (required)")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "concurrent questions (default: workflow.workers)")
	_ = runCmd.MarkFlagRequired("batch")
	_ = runCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(runCmd)
}

func runBatch(c *cobra.Command, _ []string) error {
	records, err := batchio.ReadQuestionsFile(runBatchFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c.Context())
	defer cancel()

	app, err := newApp(ctx, func(cfg *config.Config) {
		if runWorkers > 0 {
			cfg.Workflow.Workers = runWorkers
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	for _, rec := range records {
		if !rec.Accepted() {
			app.Logger.Warn("skipping invalid question", "line", rec.Line, "id", rec.Question.ID, "error", rec.Err)
		}
	}

	answered := app.Batch.Run(ctx, batchio.Accepted(records))
	results := batchio.Merge(records, answered)
	if err := batchio.WriteResultsFile(runOutFile, results); err != nil {
		return err
	}

	summary := workflow.Summarize(results)
	app.Logger.Info("batch complete",
		"total", summary.Total,
		"failed", summary.Failed,
		"mean_confidence", summary.MeanConfidence,
	)
	fmt.Fprintf(c.OutOrStdout(), "Processed %d questions. Results written to %s\n", len(results), runOutFile)
	return nil
}
