package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/catalogsnap/internal/model"
)

// DefaultBatchConcurrency is the default number of catalog roots crawled
// simultaneously. Each root additionally runs its own per-root fetch
// concurrency, so this is kept modest.
const DefaultBatchConcurrency = 4

// Target identifies one catalog root to crawl.
type Target struct {
	// Name is the display label for the root node.
	Name string

	// URL is the catalog entry address.
	URL string
}

// BatchCrawler crawls several catalog roots concurrently.
//
// Design decision: We use a crawler factory rather than a shared Crawler
// because each root may need different settings (per-catalog delay,
// noise parameters), and a fresh Crawler per root keeps no state shared
// between crawls.
type BatchCrawler struct {
	// crawlerFactory creates the Crawler for one target.
	crawlerFactory func(target Target) *Crawler

	// concurrency is the maximum number of roots crawled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores the snapshots by target index.
	results []*model.Snapshot
	mu      sync.Mutex
}

// BatchOption configures a BatchCrawler.
type BatchOption func(*BatchCrawler)

// WithBatchConcurrency sets the maximum number of concurrent root crawls.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchCrawler) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets a custom logger for batch crawling.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchCrawler) {
		b.logger = logger
	}
}

// NewBatchCrawler creates a BatchCrawler.
// The factory is called once per target to create its Crawler.
func NewBatchCrawler(factory func(target Target) *Crawler, opts ...BatchOption) *BatchCrawler {
	b := &BatchCrawler{
		crawlerFactory: factory,
		concurrency:    DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// CrawlAll crawls every target and returns the snapshots in target
// order. Per-root fetch failures never abort the batch; the only error
// CrawlAll returns is context cancellation, and even then the snapshots
// collected so far (including partial trees) are returned.
func (b *BatchCrawler) CrawlAll(ctx context.Context, targets []Target) ([]*model.Snapshot, error) {
	b.logger.Info("starting batch crawl",
		"targets", len(targets),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	// Pre-allocate so results keep target order regardless of
	// completion order.
	b.results = make([]*model.Snapshot, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			b.logger.Info("crawling catalog",
				"url", target.URL,
				"index", i+1,
				"total", len(targets),
			)

			snap, err := b.crawlerFactory(target).Crawl(ctx, target.Name, target.URL)

			// Keep the snapshot even when the crawl was cut short; a
			// partial tree is still well formed and worth reporting.
			b.mu.Lock()
			b.results[i] = snap
			b.mu.Unlock()

			// Crawl only errors on cancellation, which should stop the
			// whole batch.
			return err
		})
	}

	err := g.Wait()

	b.logger.Info("batch crawl complete",
		"targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return b.results, err
}

// CrawlAllWithCallback crawls every target and invokes the callback for
// each finished snapshot. The callback runs on the goroutine that
// finished the crawl, so it must be safe for concurrent use.
func (b *BatchCrawler) CrawlAllWithCallback(
	ctx context.Context,
	targets []Target,
	callback func(snap *model.Snapshot, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			snap, err := b.crawlerFactory(target).Crawl(ctx, target.Name, target.URL)
			callback(snap, i)
			return err
		})
	}

	return g.Wait()
}
