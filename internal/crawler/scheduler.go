package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/catalogsnap/internal/model"
)

// DefaultConcurrency is the default number of concurrent page fetches.
// Four keeps the pipe busy on high-latency catalogs without looking like
// a flood to the server.
const DefaultConcurrency = 4

// Fetcher retrieves the raw body of a listing page.
// Implementations must be safe for concurrent use: the crawler issues up
// to its concurrency limit of fetches simultaneously.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// PageParser turns a fetched listing page into an ordered entry list.
// Implementations must be pure: a page with no recognizable structure
// yields an empty list, never an error.
type PageParser interface {
	Parse(base string, body []byte) []model.Entry
}

// DiagnosticSink receives fetch failures as they happen.
// Implementations must not block; they are called from the scheduler
// loop.
type DiagnosticSink interface {
	ReportFetchFailure(address string, err error)
}

// slogSink is the default DiagnosticSink, logging failures as warnings.
type slogSink struct {
	logger *slog.Logger
}

// ReportFetchFailure implements DiagnosticSink.
func (s slogSink) ReportFetchFailure(address string, err error) {
	s.logger.Warn("failed to fetch listing page",
		"address", address,
		"error", err,
	)
}

// Crawler performs a bounded-concurrency breadth-first crawl of a
// catalog and assembles the discovered tree.
type Crawler struct {
	// fetcher retrieves listing page bodies.
	fetcher Fetcher

	// parser extracts entries from fetched pages.
	parser PageParser

	// normalizer derives dedup identities from addresses.
	normalizer Normalizer

	// diagnostics receives fetch failures.
	diagnostics DiagnosticSink

	// logger is used for structured debug logging.
	logger *slog.Logger

	// concurrency bounds the number of fetches in flight. Always >= 1.
	concurrency int

	// delay is a uniform throttle applied before each fetch.
	// Zero disables it. This is politeness, not back-off.
	delay time.Duration

	// maxPages caps the number of listing pages fetched.
	// Zero means unlimited. When the cap is reached, dispatching stops
	// and the remaining frontier is left unexpanded.
	maxPages int
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithConcurrency bounds the number of concurrent fetches.
// Values below 1 are ignored.
func WithConcurrency(n int) CrawlerOption {
	return func(c *Crawler) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// WithDelay sets a uniform delay applied before each fetch.
func WithDelay(d time.Duration) CrawlerOption {
	return func(c *Crawler) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithMaxPages caps the number of listing pages fetched per crawl.
// Zero (the default) means unlimited.
func WithMaxPages(n int) CrawlerOption {
	return func(c *Crawler) {
		if n >= 0 {
			c.maxPages = n
		}
	}
}

// WithParser replaces the listing page parser.
func WithParser(p PageParser) CrawlerOption {
	return func(c *Crawler) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithNormalizer replaces the address normalizer, typically to change
// the set of noise query parameters.
func WithNormalizer(n Normalizer) CrawlerOption {
	return func(c *Crawler) {
		c.normalizer = n
	}
}

// WithDiagnostics replaces the diagnostic sink for fetch failures.
func WithDiagnostics(sink DiagnosticSink) CrawlerOption {
	return func(c *Crawler) {
		if sink != nil {
			c.diagnostics = sink
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler with the given Fetcher.
//
// Design decision: The fetcher is a required argument rather than an
// option because a crawler without one is useless, and tests inject
// fakes through the same parameter the production client uses.
func New(fetcher Fetcher, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		fetcher:     fetcher,
		parser:      NewParser(),
		normalizer:  NewNormalizer(),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.diagnostics == nil {
		c.diagnostics = slogSink{logger: c.logger}
	}

	return c
}

// fetchResult carries one completed fetch back to the scheduler loop.
// Exactly one of entries or err is meaningful.
type fetchResult struct {
	node    *model.CatalogNode
	entries []model.Entry
	err     error
}

// Crawl explores the catalog rooted at rootAddress breadth-first and
// returns the assembled tree wrapped in a Snapshot.
//
// The root address is fetched as given; its normalized identity is
// recorded as visited before the loop starts, so a listing that links
// back to the root never re-enqueues it.
//
// On context cancellation the crawler stops dispatching, drains the
// fetches still in flight, and returns the partial tree together with
// ctx.Err(). The tree is well formed in every outcome.
func (c *Crawler) Crawl(ctx context.Context, rootName, rootAddress string) (*model.Snapshot, error) {
	snap := model.NewSnapshot(rootName, rootAddress)
	start := time.Now()

	c.logger.Debug("starting crawl",
		"root", rootAddress,
		"concurrency", c.concurrency,
		"delay", c.delay,
	)

	// frontier, visited, and the inflight count are owned by this
	// goroutine only. Workers communicate exclusively via completions.
	frontier := []*model.CatalogNode{snap.Root}
	visited := map[string]struct{}{c.normalizer.Normalize(rootAddress): {}}
	completions := make(chan fetchResult)
	inflight := 0
	canceled := false

	for len(frontier) > 0 || inflight > 0 {
		// A context that is already done must yield the canceled outcome
		// before anything new is dispatched. Without this check a ready
		// completion could win the drain select below and mask the
		// cancellation.
		if !canceled && ctx.Err() != nil {
			canceled = true
			frontier = frontier[:0]
		}

		// Dispatch phase: refill every free slot before blocking, so one
		// completion never stalls the rest of the pipe.
		for !canceled && len(frontier) > 0 && inflight < c.concurrency && !c.pageLimitReached(snap) {
			node := frontier[0]
			frontier = frontier[1:]
			inflight++
			go c.fetchEntries(ctx, node, completions)
		}

		if inflight == 0 {
			// Nothing in flight and nothing dispatchable: either the
			// page cap was hit or the crawl was canceled with an empty
			// pipe.
			break
		}

		// Drain phase: wait for at least one completion. This is the
		// scheduler's only suspension point.
		var res fetchResult
		if canceled {
			// Workers see the canceled context and finish promptly;
			// collect them so none leaks.
			res = <-completions
		} else {
			select {
			case res = <-completions:
			case <-ctx.Done():
				canceled = true
				frontier = frontier[:0]
				continue
			}
		}
		inflight--

		c.assemble(res, snap, &frontier, visited)
	}

	snap.Duration = time.Since(start)
	snap.Canceled = canceled

	c.logger.Debug("crawl finished",
		"root", rootAddress,
		"pages", snap.PageCount,
		"nodes", snap.NodeCount(),
		"failures", snap.FailureCount(),
		"duration", snap.Duration,
	)

	if canceled {
		return snap, ctx.Err()
	}
	return snap, nil
}

// pageLimitReached reports whether the maxPages cap stops dispatching.
func (c *Crawler) pageLimitReached(snap *model.Snapshot) bool {
	return c.maxPages > 0 && snap.PageCount >= c.maxPages
}

// fetchEntries runs on a worker goroutine: apply the politeness delay,
// fetch the node's listing page, parse it, and report the outcome.
// Parsing happens here because the parser is pure; only the scheduler
// loop touches shared state.
func (c *Crawler) fetchEntries(ctx context.Context, node *model.CatalogNode, completions chan<- fetchResult) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			completions <- fetchResult{node: node, err: ctx.Err()}
			return
		}
	}

	body, err := c.fetcher.Fetch(ctx, node.Address)
	if err != nil {
		completions <- fetchResult{node: node, err: err}
		return
	}

	completions <- fetchResult{node: node, entries: c.parser.Parse(node.Address, body)}
}

// assemble attaches a completed fetch's entries to the originating node
// and enqueues unseen internal children. It runs only on the scheduler
// goroutine, which is what makes the visited check-and-insert atomic
// with respect to other completing fetches.
func (c *Crawler) assemble(res fetchResult, snap *model.Snapshot, frontier *[]*model.CatalogNode, visited map[string]struct{}) {
	node := res.node

	if res.err != nil {
		// The node stays in the tree with no children; the crawl goes on.
		c.diagnostics.ReportFetchFailure(node.Address, res.err)
		snap.RecordFailure(node.Address, res.err)
		return
	}

	snap.PageCount++

	for _, entry := range res.entries {
		child := model.NewCatalogNode(entry)
		node.Children = append(node.Children, child)

		if entry.Kind == model.KindLeaf {
			node.HasLeafChildren = true
			continue
		}

		identity := c.normalizer.Normalize(entry.Address)
		if _, seen := visited[identity]; seen {
			// Already claimed by an earlier discoverer. The occurrence
			// stays visible in the tree but is never expanded; this is
			// what breaks cycles and cross-links.
			continue
		}
		visited[identity] = struct{}{}
		*frontier = append(*frontier, child)
	}

	c.logger.Debug("assembled listing page",
		"address", node.Address,
		"entries", len(res.entries),
	)
}
