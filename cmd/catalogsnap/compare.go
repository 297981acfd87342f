package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/catalogsnap/internal/config"
	"github.com/nao1215/catalogsnap/internal/database"
	"github.com/nao1215/catalogsnap/internal/model"
)

// Growth direction labels for the comparison summary.
const (
	growthDirectionGrew      = "grew"
	growthDirectionShrank    = "shrank"
	growthDirectionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares crawl snapshots stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [catalog-url]",
		Short: "Compare crawl snapshots of a catalog",
		Long: `Compare displays differences between the two most recent snapshots
of a catalog.

This command retrieves historical snapshots from the database and shows:
- Entries added since the previous crawl
- Entries removed since the previous crawl
- Changes in category and leaf entry counts

The comparison requires at least two snapshots in the database for the
specified catalog URL. Use 'catalogsnap crawl' to create snapshots.

Examples:
  # Compare the latest two snapshots of a catalog
  catalogsnap compare https://a.example/catalog

  # List all snapshots for a catalog
  catalogsnap compare --list https://a.example/catalog

  # Compare the latest snapshot with a specific earlier one by ID
  catalogsnap compare --with-snapshot-id 5 https://a.example/catalog

  # Output comparison in JSON format
  catalogsnap compare --json https://a.example/catalog

  # List all catalogs in the database
  catalogsnap compare --list-roots`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List snapshot history for the specified catalog URL")
	cmd.Flags().BoolP("list-roots", "L", false,
		"List all catalog roots in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-snapshot-id", "i", 0,
		"Compare with a specific snapshot by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRoots, err := cmd.Flags().GetBool("list-roots")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var rootURL string
	if !listRoots {
		if len(args) == 0 {
			return errors.New("catalog URL is required (use --list-roots to see available catalogs)")
		}
		rootURL = args[0]
		if err := validateTargetURL(rootURL); err != nil {
			return err
		}
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()

	if listRoots {
		return listCatalogRoots(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listSnapshotHistory(ctx, db, rootURL)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	withSnapshotID, err := cmd.Flags().GetInt64("with-snapshot-id")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, rootURL, withSnapshotID, jsonOutput, markdownOutput)
}

// listCatalogRoots lists all catalogs that have snapshots in the database.
func listCatalogRoots(ctx context.Context, db *database.SnapshotDB) error {
	roots, err := db.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roots: %w", err)
	}

	if len(roots) == 0 {
		fmt.Println("No snapshots found in the database.")
		fmt.Println("\nUse 'catalogsnap crawl <url>' to crawl a catalog.")
		return nil
	}

	fmt.Printf("Crawled catalogs (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Printf("  • %s\n", root)
	}
	fmt.Println("\nUse 'catalogsnap compare --list <url>' to see snapshot history for a catalog.")

	return nil
}

// listSnapshotHistory lists all snapshots for a specific catalog URL.
func listSnapshotHistory(ctx context.Context, db *database.SnapshotDB, rootURL string) error {
	history, err := db.History(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		fmt.Printf("No snapshot history found for %s\n", rootURL)
		fmt.Println("\nUse 'catalogsnap crawl' to crawl this catalog.")
		return nil
	}

	fmt.Printf("Snapshot history for %s (%d snapshots):\n\n", rootURL, len(history))
	fmt.Printf("  %-6s  %-20s  %-8s  %-8s  %-8s  %s\n", "ID", "Date", "Pages", "Entries", "Leaves", "Status")
	fmt.Println("  " + strings.Repeat("-", 66))

	for _, meta := range history {
		status := "ok"
		if meta.Canceled {
			status = "canceled"
		}
		fmt.Printf("  %-6d  %-20s  %-8d  %-8d  %-8d  %s\n",
			meta.ID,
			meta.CreatedAt.Format("2006-01-02 15:04:05"),
			meta.PageCount,
			meta.NodeCount,
			meta.LeafCount,
			status,
		)
	}

	fmt.Println("\nUse 'catalogsnap compare <url>' to compare the latest two snapshots.")
	fmt.Println("Use 'catalogsnap compare --with-snapshot-id <id> <url>' to compare with a specific snapshot.")

	return nil
}

// runComparison performs the actual comparison between snapshots.
func runComparison(ctx context.Context, db *database.SnapshotDB, rootURL string, withSnapshotID int64, jsonOutput, markdownOutput bool) error {
	current, err := db.LatestSnapshot(ctx, rootURL)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	if current == nil {
		return fmt.Errorf("no snapshot history found for %s", rootURL)
	}

	var previous *model.Snapshot
	if withSnapshotID > 0 {
		previous, err = db.GetSnapshotByID(ctx, withSnapshotID)
		if err != nil {
			return fmt.Errorf("failed to get snapshot with ID %d: %w", withSnapshotID, err)
		}
		if previous == nil {
			return fmt.Errorf("snapshot with ID %d not found", withSnapshotID)
		}
		// Validate that the snapshot belongs to the same catalog
		if previous.RootURL != rootURL {
			return fmt.Errorf("snapshot ID %d belongs to %s, not %s", withSnapshotID, previous.RootURL, rootURL)
		}
	} else {
		previous, err = db.PreviousSnapshot(ctx, rootURL)
		if err != nil {
			return fmt.Errorf("failed to get previous snapshot: %w", err)
		}
		if previous == nil {
			return errors.New("at least 2 snapshots are required for comparison (found 1)")
		}
	}

	comparison := compareSnapshots(previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two snapshots.
type ComparisonResult struct {
	// RootURL is the compared catalog root.
	RootURL string `json:"root_url"`

	// PreviousCrawl contains metadata about the previous snapshot.
	PreviousCrawl CrawlMetadata `json:"previous_crawl"`

	// CurrentCrawl contains metadata about the current snapshot.
	CurrentCrawl CrawlMetadata `json:"current_crawl"`

	// AddedEntries contains entries present only in the current snapshot.
	AddedEntries []EntryRef `json:"added_entries,omitempty"`

	// RemovedEntries contains entries present only in the previous snapshot.
	RemovedEntries []EntryRef `json:"removed_entries,omitempty"`

	// UnchangedCount is the number of entries present in both snapshots.
	UnchangedCount int `json:"unchanged_count"`

	// Growth describes the overall change in catalog size.
	Growth Growth `json:"growth"`
}

// CrawlMetadata contains metadata about one snapshot for display.
type CrawlMetadata struct {
	// CrawledAt is when the crawl was performed.
	CrawledAt time.Time `json:"crawled_at"`

	// NodeCount is the total number of catalog entries.
	NodeCount int `json:"node_count"`

	// LeafCount is the number of leaf entries.
	LeafCount int `json:"leaf_count"`

	// Canceled reports whether the crawl was cut short.
	Canceled bool `json:"canceled"`
}

// EntryRef identifies one catalog entry for comparison display.
type EntryRef struct {
	// Name is the entry's display name.
	Name string `json:"name"`

	// Address is the entry's link target.
	Address string `json:"address"`

	// Kind is "internal" or "leaf".
	Kind model.Kind `json:"kind"`
}

// Growth describes the change in catalog size between snapshots.
type Growth struct {
	// Direction is "grew", "shrank", or "unchanged".
	Direction string `json:"direction"`

	// NodeDelta is the change in total entry count.
	NodeDelta int `json:"node_delta"`

	// LeafDelta is the change in leaf entry count.
	LeafDelta int `json:"leaf_delta"`
}

// compareSnapshots compares two snapshots and generates a comparison result.
//
// Design decision: Entries are keyed by address, kind, and name rather
// than tree position, so a category that merely moved within the tree is
// not reported as removed and re-added.
func compareSnapshots(previous, current *model.Snapshot) *ComparisonResult {
	result := &ComparisonResult{
		RootURL: current.RootURL,
		PreviousCrawl: CrawlMetadata{
			CrawledAt: previous.CrawledAt,
			NodeCount: previous.NodeCount(),
			LeafCount: previous.LeafCount(),
			Canceled:  previous.Canceled,
		},
		CurrentCrawl: CrawlMetadata{
			CrawledAt: current.CrawledAt,
			NodeCount: current.NodeCount(),
			LeafCount: current.LeafCount(),
			Canceled:  current.Canceled,
		},
	}

	previousEntries := collectEntries(previous.Root)
	currentEntries := collectEntries(current.Root)

	for key, entry := range currentEntries {
		if _, exists := previousEntries[key]; !exists {
			result.AddedEntries = append(result.AddedEntries, entry)
		}
	}

	for key, entry := range previousEntries {
		if _, exists := currentEntries[key]; !exists {
			result.RemovedEntries = append(result.RemovedEntries, entry)
		} else {
			result.UnchangedCount++
		}
	}

	// Map iteration order is random; sort for stable output.
	sortEntryRefs(result.AddedEntries)
	sortEntryRefs(result.RemovedEntries)

	result.Growth = calculateGrowth(result.PreviousCrawl, result.CurrentCrawl)

	return result
}

// collectEntries flattens a catalog tree into a key -> entry map.
// The root node itself is excluded; it exists in every snapshot.
func collectEntries(root *model.CatalogNode) map[string]EntryRef {
	entries := make(map[string]EntryRef)
	if root == nil {
		return entries
	}

	root.Walk(func(n *model.CatalogNode, depth int) bool {
		if depth == 0 {
			return true
		}
		ref := EntryRef{Name: n.Name, Address: n.Address, Kind: n.Kind}
		entries[entryKey(ref)] = ref
		return true
	})

	return entries
}

// entryKey generates a unique key for an entry for comparison purposes.
func entryKey(e EntryRef) string {
	return e.Address + "|" + e.Kind.String() + "|" + e.Name
}

// sortEntryRefs sorts entries by name, then address, for stable output.
func sortEntryRefs(entries []EntryRef) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Address < entries[j].Address
	})
}

// calculateGrowth calculates the change in catalog size between snapshots.
func calculateGrowth(previous, current CrawlMetadata) Growth {
	growth := Growth{
		NodeDelta: current.NodeCount - previous.NodeCount,
		LeafDelta: current.LeafCount - previous.LeafCount,
	}

	switch {
	case growth.NodeDelta > 0:
		growth.Direction = growthDirectionGrew
	case growth.NodeDelta < 0:
		growth.Direction = growthDirectionShrank
	default:
		growth.Direction = growthDirectionUnchanged
	}

	return growth
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Snapshot Comparison: %s\n\n", result.RootURL)

	fmt.Println("## Summary")
	fmt.Printf("\n**Catalog:** %s\n\n", formatGrowthDirection(result.Growth))

	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousCrawl.CrawledAt.Format("2006-01-02 15:04"),
		result.CurrentCrawl.CrawledAt.Format("2006-01-02 15:04"))
	fmt.Printf("| Entries | %d | %d | %s |\n",
		result.PreviousCrawl.NodeCount,
		result.CurrentCrawl.NodeCount,
		formatDelta(result.Growth.NodeDelta))
	fmt.Printf("| Leaves | %d | %d | %s |\n",
		result.PreviousCrawl.LeafCount,
		result.CurrentCrawl.LeafCount,
		formatDelta(result.Growth.LeafDelta))

	if len(result.AddedEntries) > 0 {
		fmt.Printf("\n## Added Entries (%d)\n\n", len(result.AddedEntries))
		for _, e := range result.AddedEntries {
			fmt.Printf("- **[%s]** [%s](%s)\n", e.Kind, e.Name, e.Address)
		}
	}

	if len(result.RemovedEntries) > 0 {
		fmt.Printf("\n## Removed Entries (%d)\n\n", len(result.RemovedEntries))
		for _, e := range result.RemovedEntries {
			fmt.Printf("- ~~**[%s]** %s~~\n", e.Kind, e.Name)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d entries unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Snapshot Comparison: %s\n", result.RootURL)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nCatalog: %s\n", formatGrowthDirection(result.Growth))

	fmt.Printf("\nPrevious crawl: %s\n", result.PreviousCrawl.CrawledAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current crawl:  %s\n", result.CurrentCrawl.CrawledAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\nEntry Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Entries",
		result.PreviousCrawl.NodeCount, result.CurrentCrawl.NodeCount,
		formatDelta(result.Growth.NodeDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Leaves",
		result.PreviousCrawl.LeafCount, result.CurrentCrawl.LeafCount,
		formatDelta(result.Growth.LeafDelta))

	if len(result.AddedEntries) > 0 {
		fmt.Printf("\nAdded Entries (%d):\n", len(result.AddedEntries))
		for _, e := range result.AddedEntries {
			fmt.Printf("  [+] [%s] %s\n", e.Kind, e.Name)
			if e.Address != "" {
				fmt.Printf("      %s\n", e.Address)
			}
		}
	}

	if len(result.RemovedEntries) > 0 {
		fmt.Printf("\nRemoved Entries (%d):\n", len(result.RemovedEntries))
		for _, e := range result.RemovedEntries {
			fmt.Printf("  [-] [%s] %s\n", e.Kind, e.Name)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d entries\n", result.UnchangedCount)
	}

	if result.PreviousCrawl.Canceled || result.CurrentCrawl.Canceled {
		fmt.Println("\nNote: at least one compared snapshot is partial (canceled crawl).")
	}

	return nil
}

// formatGrowthDirection formats the growth direction for display.
func formatGrowthDirection(growth Growth) string {
	switch growth.Direction {
	case growthDirectionGrew:
		return fmt.Sprintf("GREW (+%d entries)", growth.NodeDelta)
	case growthDirectionShrank:
		return fmt.Sprintf("SHRANK (%d entries)", growth.NodeDelta)
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
