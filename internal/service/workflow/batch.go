package workflow

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, q core.Question) core.Result
}

// BatchRunner answers many independent questions with a bounded pool of
// workers. Results come back in input order.
type BatchRunner struct {
	answerer Answerer
	workers  int
	logger   *logging.Logger
}

// NewBatchRunner creates a batch runner. workers <= 0 uses GOMAXPROCS.
func NewBatchRunner(a Answerer, workers int, logger *logging.Logger) *BatchRunner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BatchRunner{answerer: a, workers: workers, logger: logger}
}

// Workers returns the concurrency limit.
func (b *BatchRunner) Workers() int {
	return b.workers
}

// Run answers every question. One question's failure never affects the
// others; once ctx is cancelled the remaining questions are reported as
// failed without being started.
func (b *BatchRunner) Run(ctx context.Context, questions []core.Question) []core.Result {
	results := make([]core.Result, len(questions))
	if len(questions) == 0 {
		return results
	}

	start := time.Now()
	var done atomic.Int64

	b.logger.Info("starting batch", "questions", len(questions), "workers", b.workers)

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = core.FailedResult(q.ID, core.ErrCancelled(err))
				return nil
			}
			results[i] = b.answerer.Answer(ctx, q)
			n := done.Add(1)
			b.logger.Debug("batch progress", "done", n, "total", len(questions))
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	b.logger.Info("batch finished",
		"questions", summary.Total,
		"failed", summary.Failed,
		"mean_confidence", summary.MeanConfidence,
		"duration", time.Since(start),
	)
	return results
}

// BatchSummary aggregates a batch of results.
type BatchSummary struct {
	Total          int     `json:"total"`
	Failed         int     `json:"failed"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Summarize counts results and averages their confidence. A result with
// zero confidence counts as failed.
func Summarize(results []core.Result) BatchSummary {
	s := BatchSummary{Total: len(results)}
	if len(results) == 0 {
		return s
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
		if r.Confidence == 0 {
			s.Failed++
		}
	}
	s.MeanConfidence = sum / float64(len(results))
	return s
}
