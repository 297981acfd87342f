package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to be polite to public catalog sites while
// keeping a full crawl of a typical problem archive under a minute.
const (
	// DefaultRootURL is the entry page of the UVa Online Judge problem
	// catalog, the archive catalogsnap was originally written for. Any
	// site built on the same listing layout (a table of folder and file
	// icons) works as a crawl root.
	DefaultRootURL = "https://onlinejudge.org/index.php?option=com_onlinejudge&Itemid=8"

	// DefaultRootName is the display name used for the root node when
	// the user does not supply one.
	DefaultRootName = "Catalog"

	// DefaultTimeout is the per-request HTTP timeout. Public catalog
	// sites occasionally sit behind slow shared hosting, so 30 seconds
	// is generous without letting a dead server stall the crawl forever.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency is the number of listing pages fetched at once
	// within a single crawl. Four keeps the load on the origin modest
	// while hiding most of the round-trip latency.
	DefaultConcurrency = 4

	// DefaultBatchSize is the number of catalog roots crawled
	// concurrently when processing multiple targets. Each root runs its
	// own per-root fetch concurrency on top of this.
	DefaultBatchSize = 4

	// DefaultMaxPages is the maximum number of listing pages fetched
	// per crawl. This prevents runaway crawling when a misconfigured
	// site generates listing links without bound. Users can override
	// this via the --max-pages CLI flag.
	DefaultMaxPages = 1000

	// AppName is the application name used for XDG directory paths.
	AppName = "catalogsnap"

	// DefaultCrawlDelay is the delay before each listing-page request.
	// This is a politeness setting; catalogs are usually small community
	// sites, so a short uniform delay between requests is appropriate.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultUserAgent identifies catalogsnap in HTTP requests.
	// A descriptive User-Agent lets site operators identify crawler
	// traffic in their logs.
	DefaultUserAgent = "catalogsnap/1.0 (+https://github.com/nao1215/catalogsnap)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is far beyond any realistic listing page while preventing
	// memory exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for catalogsnap.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Targets is the list of catalog root URLs to crawl.
	// Must contain at least one valid http or https URL.
	Targets []string

	// RootName is the display name for the root node. Only used for
	// single-target crawls; batch crawls derive names from the URL host.
	RootName string

	// Timeout is the HTTP timeout for each listing-page request.
	// This applies to individual requests, not the overall crawl.
	Timeout time.Duration

	// Concurrency is the maximum number of listing pages fetched at
	// once within a single crawl.
	Concurrency int

	// MaxPages is the maximum number of listing pages fetched per crawl.
	// A value of 0 means use the default (DefaultMaxPages).
	MaxPages int

	// BatchSize is the number of concurrent crawls when processing
	// multiple catalog roots.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .catalogsnap in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// CatalogConfigs holds per-catalog configurations loaded from the
	// config file. This is populated by LoadConfigFile and consulted
	// per crawl target.
	CatalogConfigs *File

	// JSONReport enables JSON report output instead of the
	// human-readable tree format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable tree format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, snapshots are saved for historical comparison.
	// When empty, snapshots are not persisted.
	// Defaults to XDG data directory (~/.local/share/catalogsnap on Linux).
	DBDir string

	// SaveToDB indicates whether to save snapshots to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// CrawlDelay is the delay before each listing-page request.
	// This is a "politeness" setting; use 0 to disable throttling.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify crawler
	// traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory
	// exhaustion. Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Progress enables a terminal progress bar during batch crawls.
	Progress bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout,
// concurrency). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		RootName:    DefaultRootName,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		MaxPages:    DefaultMaxPages,
		BatchSize:   DefaultBatchSize,
		CrawlDelay:  DefaultCrawlDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for catalogsnap.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/catalogsnap
// On macOS: ~/Library/Application Support/catalogsnap
// On Windows: %LOCALAPPDATA%\catalogsnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for catalogsnap.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/catalogsnap
// On macOS: ~/Library/Application Support/catalogsnap
// On Windows: %APPDATA%\catalogsnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one catalog root to crawl
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Concurrency must be positive; zero would mean no fetching
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// BatchSize must be positive; zero would mean no crawling
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// CrawlDelay must be non-negative
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	// MaxBodySize must be non-negative; 0 means default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
