package scan

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/urlscan/internal/model"
)

// DefaultConcurrency is the number of URLs scanned at once by default.
const DefaultConcurrency = 10

// BatchProcessor scans many URLs concurrently.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Scanner because:
// 1. It keeps the Scanner focused on a single URL
// 2. Callers choose between collecting all results and streaming them
// 3. The concurrency limit is a batch concern, not a scoring one
type BatchProcessor struct {
	scanner     *Scanner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around a Scanner.
func NewBatchProcessor(scanner *Scanner, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		scanner:     scanner,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans all URLs and returns the reports in input order.
// A URL whose scan never started because ctx was cancelled has a nil report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.ScanReport, error) {
	bp.logger.Info("starting batch scan",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	// Each goroutine writes only its own index.
	results := make([]*model.ScanReport, len(urls))

	err := bp.run(ctx, urls, func(report *model.ScanReport, index int) {
		results[index] = report
	})

	bp.logger.Info("batch scan complete",
		"total_urls", len(urls),
		"elapsed", time.Since(start),
	)
	return results, err
}

// ProcessBatchWithCallback scans all URLs and calls callback as each scan
// finishes. The callback runs on the scanning goroutine and must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(report *model.ScanReport, index int),
) error {
	return bp.run(ctx, urls, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, urls []string, done func(*model.ScanReport, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report, err := bp.scanner.Scan(ctx, u)
			if err != nil {
				bp.logger.Warn("scan failed", "url", u, "error", err)
			}
			// The report carries the error; other scans keep going.
			done(report, i)
			return nil
		})
	}

	return g.Wait()
}
