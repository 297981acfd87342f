// Package fetch provides the HTTP client used to retrieve catalog
// listing pages.
//
// The client is deliberately thin: it handles request headers, response
// status checking, body size limits, and charset decoding, and nothing
// else. Crawl scheduling, deduplication, and retry policy live in the
// crawler package; the crawler only sees this package through its
// Fetcher interface.
//
// All methods are safe for concurrent use, which the crawler relies on
// when it runs multiple fetches in flight.
package fetch
