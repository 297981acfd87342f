// Package database provides SQLite-based storage for catalogsnap.
//
// This package implements the SnapshotDB, which stores:
//   - Crawl snapshots with their full catalog trees as JSON
//   - Fetch failures recorded during each crawl
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
