package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/catalogsnap/internal/config"
	"github.com/nao1215/catalogsnap/internal/crawler"
	"github.com/nao1215/catalogsnap/internal/database"
	"github.com/nao1215/catalogsnap/internal/fetch"
	"github.com/nao1215/catalogsnap/internal/log"
	"github.com/nao1215/catalogsnap/internal/model"
	"github.com/nao1215/catalogsnap/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [catalog-url...]",
		Short: "Crawl a catalog site and capture its category tree",
		Long: `Crawl follows category links breadth first starting from the given
catalog root, records every category and leaf entry, and prints the
resulting tree.

Category pages are deduplicated by normalized address, so pagination
parameters and cyclic links cannot trap the crawl. Pages that fail to
fetch are recorded and shown as empty categories.

Examples:
  # Crawl a catalog and print the tree
  catalogsnap crawl https://onlinejudge.org/index.php?option=com_onlinejudge&Itemid=8

  # Crawl several catalogs concurrently
  catalogsnap crawl https://a.example/catalog https://b.example/catalog

  # Output a JSON snapshot
  catalogsnap crawl --json https://a.example/catalog

  # Write a Markdown report to a file
  catalogsnap crawl --markdown -o report.md https://a.example/catalog

  # Use a custom configuration file
  catalogsnap crawl -c myconfig.yaml https://a.example/catalog

Configuration file (.catalogsnap) example:
  catalogs:
    onlinejudge.org:
      name: "UVa Online Judge"
      delay: 500ms
      noiseParams: [limit, limitstart]
    archive.example.org:
      headers:
        Cookie: "session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().StringP("root-name", "n", config.DefaultRootName,
		"Display name for the root node (single-target crawls only)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each listing-page request")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Maximum number of listing pages fetched at once")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Delay before each listing-page request")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of listing pages fetched per crawl")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls for multiple targets")
	cmd.Flags().BoolP("progress", "P", false,
		"Show a progress bar during batch crawls")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .catalogsnap in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON snapshot (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown.
	// Cancellation ends the crawl with the partial tree collected so far.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.RootName, err = cmd.Flags().GetString("root-name")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Progress, err = cmd.Flags().GetBool("progress")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-catalog configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.CatalogConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.CatalogConfigs = &config.File{
			Catalogs: make(map[string]config.CatalogConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (catalog root URLs).
	// Without arguments the built-in catalog root is crawled.
	cfg.Targets = args
	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{config.DefaultRootURL}
	}

	return cfg, nil
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"concurrency", cfg.Concurrency,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Validate all target URLs before doing any work
	for _, target := range cfg.Targets {
		if err := validateTargetURL(target); err != nil {
			return err
		}
	}

	// Open database connection if saving is enabled
	var db *database.SnapshotDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Use batch crawling for multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}

	return runSequentialCrawl(ctx, cfg, db, logger)
}

// validateTargetURL reports an error for targets that are not absolute
// http or https URLs.
func validateTargetURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid catalog URL %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid catalog URL %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid catalog URL %q: missing host", target)
	}
	return nil
}

// runSequentialCrawl crawls targets one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.SnapshotDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := crawler.Target{Name: targetName(cfg, target), URL: target}
		c := createCrawlerForTarget(cfg, logger, t)

		fmt.Printf("Crawling %s...\n", target)
		startTime := time.Now()

		snap, err := c.Crawl(ctx, t.Name, t.URL)
		if err != nil {
			// Only cancellation reaches here; the snapshot still holds
			// the partial tree.
			logger.Warn("crawl interrupted", "target", target, "error", err)
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Crawl finished in %s (%d pages, %d entries)\n\n",
			elapsed.Round(time.Millisecond), snap.PageCount, snap.NodeCount())

		if reportErr := outputReport(cfg, snap); reportErr != nil {
			logger.Error("report failed", "target", target, "error", reportErr)
		}

		if saveErr := saveSnapshot(ctx, db, snap, logger); saveErr != nil {
			logger.Error("failed to save snapshot", "target", target, "error", saveErr)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// runBatchCrawl crawls multiple targets concurrently using BatchCrawler.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.SnapshotDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d catalogs (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	targets := make([]crawler.Target, len(cfg.Targets))
	for i, target := range cfg.Targets {
		targets[i] = crawler.Target{Name: targetName(cfg, target), URL: target}
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.NewOptions(len(targets),
			progressbar.OptionSetDescription("crawling catalogs"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	bc := crawler.NewBatchCrawler(
		func(t crawler.Target) *crawler.Crawler {
			return createCrawlerForTarget(cfg, logger, t)
		},
		crawler.WithBatchConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err := bc.CrawlAllWithCallback(ctx, targets, func(snap *model.Snapshot, index int) {
		mu.Lock()
		defer mu.Unlock()

		if bar != nil {
			_ = bar.Add(1) //nolint:errcheck // Progress display is best effort
		}

		fmt.Printf("[%d/%d] Crawl completed: %s (%d entries)\n",
			index+1, len(targets), snap.RootURL, snap.NodeCount())

		if reportErr := outputReport(cfg, snap); reportErr != nil {
			logger.Error("report failed", "target", snap.RootURL, "error", reportErr)
		}

		if saveErr := saveSnapshot(ctx, db, snap, logger); saveErr != nil {
			logger.Error("failed to save snapshot", "target", snap.RootURL, "error", saveErr)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// targetName picks the display name for one catalog root.
// Per-catalog config wins, then the --root-name flag for single-target
// crawls, then the URL host.
func targetName(cfg *config.Config, target string) string {
	host := hostOf(target)

	if cfg.CatalogConfigs != nil {
		if cc := cfg.CatalogConfigs.GetCatalogConfig(host); cc.Name != "" {
			return cc.Name
		}
	}

	if len(cfg.Targets) == 1 && cfg.RootName != "" {
		return cfg.RootName
	}

	if host != "" {
		return host
	}
	return config.DefaultRootName
}

// hostOf extracts the bare host from a URL, or "" when unparseable.
func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// createCrawlerForTarget creates a crawler honoring per-catalog overrides.
func createCrawlerForTarget(cfg *config.Config, logger *slog.Logger, target crawler.Target) *crawler.Crawler {
	var cc config.CatalogConfig
	if cfg.CatalogConfigs != nil {
		cc = cfg.CatalogConfigs.GetCatalogConfig(hostOf(target.URL))
	}

	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(cc.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHeaders(cc.Headers))
	}
	client := fetch.NewClient(cfg.Timeout, fetchOpts...)

	concurrency := cfg.Concurrency
	if cc.Concurrency > 0 {
		concurrency = cc.Concurrency
	}
	delay := cfg.CrawlDelay
	if cc.Delay > 0 {
		delay = cc.Delay.Std()
	}
	maxPages := cfg.MaxPages
	if cc.MaxPages > 0 {
		maxPages = cc.MaxPages
	}

	crawlerOpts := []crawler.CrawlerOption{
		crawler.WithConcurrency(concurrency),
		crawler.WithDelay(delay),
		crawler.WithMaxPages(maxPages),
		crawler.WithLogger(logger),
	}
	if len(cc.NoiseParams) > 0 {
		crawlerOpts = append(crawlerOpts, crawler.WithNormalizer(crawler.NewNormalizer(cc.NoiseParams...)))
	}

	return crawler.New(client, crawlerOpts...)
}

// outputReport outputs the snapshot in the requested format.
func outputReport(cfg *config.Config, snap *model.Snapshot) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (full snapshot with version metadata)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(snap)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(snap)
		return err
	}

	// Human-readable tree report (default)
	writer := report.NewTextWriter(output)
	_, err := writer.Write(snap)
	return err
}

// saveSnapshot saves the snapshot to the database if enabled.
// If db is nil, this function is a no-op.
func saveSnapshot(ctx context.Context, db *database.SnapshotDB, snap *model.Snapshot, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A canceled crawl still archives its partial tree, so the save must
	// not inherit the cancellation that ended the crawl.
	if err := db.SaveSnapshot(context.WithoutCancel(ctx), snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	logger.Info("snapshot saved to database",
		"target", snap.RootURL,
		"session", snap.SessionID,
	)
	return nil
}
