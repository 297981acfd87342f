// Package main provides the entry point for the catalogsnap CLI.
//
// catalogsnap crawls hierarchical catalog sites (problem archives,
// document indexes, download mirrors) and captures their category tree
// as a snapshot for browsing and historical comparison.
//
// Usage:
//
//	catalogsnap crawl <catalog-url>
//	catalogsnap compare <catalog-url>
//
// See --help for all available options.
package main

// main is the entry point for catalogsnap.
func main() {
	Execute()
}
