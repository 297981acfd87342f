// Package crawler explores a tree-shaped remote catalog reachable only
// through paginated HTML listing pages and assembles the discovered
// structure as an in-memory tree.
//
// # Architecture
//
// The package is built around the Crawler type, a breadth-first
// scheduler with a bounded number of concurrent page fetches. Three
// pieces of state drive it: a FIFO frontier of nodes awaiting a fetch,
// the count of fetches in flight, and a visited set of normalized
// address identities used for deduplication.
//
// Design decision: All three are owned by the single goroutine running
// Crawl. Fetch workers only fetch and parse; they report completions
// over a channel and never touch shared state. Confining mutation to one
// goroutine turns a classic concurrent-set race (two fetches discovering
// the same child in the same drain cycle) into a sequential state
// machine that needs no locks.
//
// # Components
//
//   - Crawler: the scheduler that drives the breadth-first expansion
//   - Normalizer: canonicalizes addresses so pagination-only variants
//     collapse to one identity
//   - Parser: extracts (name, address, kind) entries from listing pages
//   - BatchCrawler: crawls several catalog roots concurrently
//
// # Failure model
//
// A fetch failure is never fatal. The failing node stays in the tree
// with no children, the failure is reported to the diagnostic sink and
// recorded on the snapshot, and the traversal continues. The only ways a
// crawl ends are frontier exhaustion and context cancellation; the
// returned tree is well formed in both cases.
//
// # Usage
//
//	c := crawler.New(fetchClient, crawler.WithConcurrency(4))
//	snap, err := c.Crawl(ctx, "Root", "https://catalog.example.com/")
package crawler
