package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/catalogsnap/internal/model"
)

// SnapshotDB provides SQLite-based storage for crawl snapshots.
// It manages connection pooling and provides methods for saving and
// retrieving snapshots for historical comparison.
//
// Design decision: We store the catalog tree as a JSON blob rather than
// normalizing nodes into rows. Snapshots are read and written whole;
// per-node queries never happen, and a blob keeps the schema stable as
// the tree shape evolves.
type SnapshotDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SnapshotDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SnapshotDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*SnapshotDB, error) {
	dbPath := filepath.Join(dbDir, "catalogsnap.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps
	// WAL checkpointing predictable.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SnapshotDB{
		db:     db,
		dbPath: dbPath,
	}

	// SQLite leaves foreign keys off per connection; the schema relies on
	// ON DELETE CASCADE for fetch_failures.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *SnapshotDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *SnapshotDB) createTables() error {
	schema := `
	-- Snapshots store one crawl result each, with the tree as JSON
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		root_url TEXT NOT NULL,
		root_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		node_count INTEGER NOT NULL DEFAULT 0,
		leaf_count INTEGER NOT NULL DEFAULT 0,
		canceled INTEGER NOT NULL DEFAULT 0,
		tree_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_root_url ON snapshots(root_url);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);

	-- Fetch failures recorded during each crawl
	CREATE TABLE IF NOT EXISTS fetch_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		address TEXT NOT NULL,
		error TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_snapshot ON fetch_failures(snapshot_id);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSnapshot stores a snapshot and its fetch failures.
func (sdb *SnapshotDB) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	treeJSON, err := json.Marshal(snap.Root)
	if err != nil {
		return fmt.Errorf("failed to serialize catalog tree: %w", err)
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	canceled := 0
	if snap.Canceled {
		canceled = 1
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO snapshots (session_id, root_url, root_name, created_at, duration_ms, page_count, node_count, leaf_count, canceled, tree_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.SessionID,
		snap.RootURL,
		snap.RootName,
		snap.CrawledAt.UTC().Format("2006-01-02 15:04:05"),
		snap.Duration.Milliseconds(),
		snap.PageCount,
		snap.NodeCount(),
		snap.LeafCount(),
		canceled,
		string(treeJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	snapshotID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read snapshot id: %w", err)
	}

	for _, f := range snap.Failures {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetch_failures (snapshot_id, address, error) VALUES (?, ?, ?)
		`, snapshotID, f.Address, f.Error); err != nil {
			return fmt.Errorf("failed to insert fetch failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by its session ID.
// Returns nil without error when no such snapshot exists.
func (sdb *SnapshotDB) GetSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	return sdb.querySnapshot(ctx, `WHERE session_id = ?`, sessionID)
}

// LatestSnapshot retrieves the most recent snapshot for a root URL.
// Returns nil without error when no snapshot exists.
func (sdb *SnapshotDB) LatestSnapshot(ctx context.Context, rootURL string) (*model.Snapshot, error) {
	return sdb.querySnapshot(ctx, `WHERE root_url = ? ORDER BY id DESC LIMIT 1`, rootURL)
}

// PreviousSnapshot retrieves the second most recent snapshot for a root
// URL. This is the baseline a fresh crawl is compared against.
// Returns nil without error when fewer than two snapshots exist.
func (sdb *SnapshotDB) PreviousSnapshot(ctx context.Context, rootURL string) (*model.Snapshot, error) {
	return sdb.querySnapshot(ctx, `WHERE root_url = ? ORDER BY id DESC LIMIT 1 OFFSET 1`, rootURL)
}

// querySnapshot runs one snapshot lookup with the given WHERE clause and
// rebuilds the model.Snapshot, including its failures.
func (sdb *SnapshotDB) querySnapshot(ctx context.Context, where string, args ...any) (*model.Snapshot, error) {
	query := `
	SELECT id, session_id, root_url, root_name, created_at, duration_ms, page_count, canceled, tree_json
	FROM snapshots ` + where

	var (
		id         int64
		snap       model.Snapshot
		createdAt  string
		durationMS int64
		canceled   int
		treeJSON   string
	)

	err := sdb.db.QueryRowContext(ctx, query, args...).Scan(
		&id,
		&snap.SessionID,
		&snap.RootURL,
		&snap.RootName,
		&createdAt,
		&durationMS,
		&snap.PageCount,
		&canceled,
		&treeJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap.CrawledAt = parseTimestamp(createdAt)
	snap.Duration = time.Duration(durationMS) * time.Millisecond
	snap.Canceled = canceled != 0

	if err := json.Unmarshal([]byte(treeJSON), &snap.Root); err != nil {
		return nil, fmt.Errorf("failed to parse catalog tree: %w", err)
	}

	failures, err := sdb.loadFailures(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Failures = failures

	return &snap, nil
}

// loadFailures loads the fetch failures belonging to one snapshot row.
func (sdb *SnapshotDB) loadFailures(ctx context.Context, snapshotID int64) ([]model.FetchFailure, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT address, error FROM fetch_failures WHERE snapshot_id = ? ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fetch failures: %w", err)
	}
	defer rows.Close()

	var failures []model.FetchFailure
	for rows.Next() {
		var f model.FetchFailure
		if err := rows.Scan(&f.Address, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan fetch failure: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// ListRoots returns the distinct root URLs with stored snapshots.
func (sdb *SnapshotDB) ListRoots(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT DISTINCT root_url FROM snapshots ORDER BY root_url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		roots = append(roots, root)
	}

	return roots, rows.Err()
}

// SnapshotMetadata contains summary information about a stored snapshot.
// This is used for displaying crawl history without loading full trees.
type SnapshotMetadata struct {
	// ID is the unique identifier of the snapshot in the database.
	ID int64

	// SessionID is the crawl session identifier.
	SessionID string

	// RootURL is the crawled catalog root.
	RootURL string

	// RootName is the display name of the catalog root.
	RootName string

	// CreatedAt is when the crawl was performed.
	CreatedAt time.Time

	// PageCount is the number of listing pages fetched.
	PageCount int

	// NodeCount is the total number of catalog entries.
	NodeCount int

	// LeafCount is the number of leaf entries.
	LeafCount int

	// Canceled reports whether the crawl was cut short.
	Canceled bool
}

// History retrieves snapshot metadata for a root URL, newest first.
// This is more efficient than loading full snapshots when only metadata
// is needed.
func (sdb *SnapshotDB) History(ctx context.Context, rootURL string) ([]SnapshotMetadata, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT id, session_id, root_url, root_name, created_at, page_count, node_count, leaf_count, canceled
	FROM snapshots
	WHERE root_url = ?
	ORDER BY id DESC
	`, rootURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []SnapshotMetadata
	for rows.Next() {
		var meta SnapshotMetadata
		var createdAt string
		var canceled int

		if err := rows.Scan(
			&meta.ID,
			&meta.SessionID,
			&meta.RootURL,
			&meta.RootName,
			&createdAt,
			&meta.PageCount,
			&meta.NodeCount,
			&meta.LeafCount,
			&canceled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.CreatedAt = parseTimestamp(createdAt)
		meta.Canceled = canceled != 0
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetSnapshotByID retrieves a snapshot by its database ID.
// Returns nil without error when no such snapshot exists.
func (sdb *SnapshotDB) GetSnapshotByID(ctx context.Context, id int64) (*model.Snapshot, error) {
	return sdb.querySnapshot(ctx, `WHERE id = ?`, id)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
