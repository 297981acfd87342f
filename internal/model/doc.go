// Package model defines the core data structures for catalogsnap.
//
// The central type is CatalogNode, one position in the remote catalog
// tree. A finished crawl is wrapped in a Snapshot, which carries the root
// node together with crawl statistics and fetch failures. Snapshots are
// what the report writers render and what the database archives.
//
// Design decision: Models live in a separate package to avoid circular
// dependencies. The crawler produces models, the report and database
// packages consume them, and neither needs to know about the other.
package model
