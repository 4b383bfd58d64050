package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/phishscan/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency is the number of URLs analyzed at once by default.
const DefaultConcurrency = 4

// BatchProcessor analyzes many URLs concurrently.
type BatchProcessor struct {
	// pipelineFactory returns the pipeline for one analysis.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger

	// inflight coalesces concurrent analyses of the same URL.
	inflight singleflight.Group
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. pipelineFactory is called once
// per analysis.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Analyze runs the pipeline for url. Concurrent calls for the same URL share
// a single run and receive the same Analysis.
func (bp *BatchProcessor) Analyze(ctx context.Context, url string) (*model.Analysis, error) {
	key := strings.TrimSpace(url)
	v, err, shared := bp.inflight.Do(key, func() (any, error) {
		return bp.pipelineFactory().Analyze(ctx, key)
	})
	if shared {
		bp.logger.Debug("coalesced duplicate analysis", "url", key)
	}
	a, _ := v.(*model.Analysis)
	return a, err
}

// ProcessBatch analyzes urls and returns one Analysis per input, in input
// order. Duplicate URLs are analyzed once and share the result. A failing
// URL does not stop the batch; its error is recorded in its Analysis. The
// returned error is non-nil only when ctx ends first.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.Analysis, error) {
	results := make([]*model.Analysis, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(a *model.Analysis, index int) {
		results[index] = a
	})
	return results, err
}

// ProcessBatchWithCallback analyzes urls and calls callback for every input
// index as soon as its analysis is done. callback may be called from several
// goroutines at once, but never twice for the same index.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(a *model.Analysis, index int),
) error {
	bp.logger.Info("starting batch",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	// Group input indexes by URL so each distinct URL runs once.
	order := make([]string, 0, len(urls))
	indexes := make(map[string][]int, len(urls))
	for i, u := range urls {
		key := strings.TrimSpace(u)
		if _, seen := indexes[key]; !seen {
			order = append(order, key)
		}
		indexes[key] = append(indexes[key], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for _, u := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			a, err := bp.Analyze(gctx, u)
			if err != nil {
				bp.logger.Warn("analysis failed", "url", u, "error", err)
			}
			for _, i := range indexes[u] {
				callback(a, i)
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"total_urls", len(urls),
		"distinct_urls", len(order),
		"elapsed", time.Since(start),
	)
	return err
}
