package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mynest/mediasniff/internal/model"
)

// DefaultBatchConcurrency is the number of pages sniffed at once when no
// limit is given.
const DefaultBatchConcurrency = 10

// BatchProcessor sniffs multiple pages concurrently.
// It uses errgroup to bound the number of pipelines in flight.
//
// Design decision: Batching lives beside Pipeline instead of inside it.
// A Pipeline sniffs exactly one page, and the factory hands each target
// a fresh one, so steps never share per-page state.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each page, so no step
	// state is shared between pages.
	pipelineFactory func(target string) *Pipeline

	// concurrency is the maximum number of concurrent sniffs.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sniffs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor. pipelineFactory is
// called once per target.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch sniffs every target and returns the reports in target order.
//
// Parameters:
//   - ctx: Cancels pending and running sniffs
//   - targets: Page URLs, sniffed at most concurrency at a time
//
// A failed sniff does not stop the others; its error is recorded in its
// report. The returned error is non-nil only when ctx was cancelled, in
// which case reports of targets that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.SniffReport, error) {
	results := make([]*model.SniffReport, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.SniffReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback sniffs every target and calls callback for each
// completed report with the target's index. The callback is called from
// the goroutine that ran the pipeline, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.SniffReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_pages", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("sniffing page",
				"page", target,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewSniffReport(target)
			if err := bp.pipelineFactory(target).Execute(ctx, report); err != nil {
				bp.logger.Warn("sniff failed", "page", target, "error", err)
			} else {
				bp.logger.Info("sniff completed",
					"page", target,
					"resources", len(report.Resources),
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_pages", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
