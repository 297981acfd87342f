package main

import (
	"strings"
	"testing"
	"time"

	"github.com/nao1215/catalogsnap/internal/model"
)

// newCompareSnapshot builds a snapshot with the given child entries
// under the root.
func newCompareSnapshot(t *testing.T, crawledAt time.Time, children []*model.CatalogNode) *model.Snapshot {
	t.Helper()

	snap := model.NewSnapshot("Archive", "https://a.example/catalog")
	snap.CrawledAt = crawledAt
	snap.Root.Children = children
	return snap
}

// TestNewCompareCmd tests the compare command creation.
func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "compare [catalog-url]" {
			t.Errorf("expected use 'compare [catalog-url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			shorthand string
		}{
			{name: "list", shorthand: "l"},
			{name: "list-roots", shorthand: "L"},
			{name: "with-snapshot-id", shorthand: "i"},
			{name: "json", shorthand: "j"},
			{name: "markdown", shorthand: "m"},
		}

		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
		}
	})
}

// TestCompareSnapshots tests snapshot comparison logic.
func TestCompareSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("detects added and removed entries", func(t *testing.T) {
		t.Parallel()

		previous := newCompareSnapshot(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal, Children: []*model.CatalogNode{
				{Name: "Problem 100", Address: "https://a.example/p100", Kind: model.KindLeaf},
			}},
			{Name: "Volume 2", Address: "https://a.example/v2", Kind: model.KindInternal},
		})
		current := newCompareSnapshot(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal, Children: []*model.CatalogNode{
				{Name: "Problem 100", Address: "https://a.example/p100", Kind: model.KindLeaf},
				{Name: "Problem 101", Address: "https://a.example/p101", Kind: model.KindLeaf},
			}},
			{Name: "Volume 3", Address: "https://a.example/v3", Kind: model.KindInternal},
		})

		result := compareSnapshots(previous, current)

		if len(result.AddedEntries) != 2 {
			t.Fatalf("expected 2 added entries, got %d: %v", len(result.AddedEntries), result.AddedEntries)
		}
		if result.AddedEntries[0].Name != "Problem 101" {
			t.Errorf("expected first added entry 'Problem 101', got %q", result.AddedEntries[0].Name)
		}
		if result.AddedEntries[1].Name != "Volume 3" {
			t.Errorf("expected second added entry 'Volume 3', got %q", result.AddedEntries[1].Name)
		}

		if len(result.RemovedEntries) != 1 {
			t.Fatalf("expected 1 removed entry, got %d", len(result.RemovedEntries))
		}
		if result.RemovedEntries[0].Name != "Volume 2" {
			t.Errorf("expected removed entry 'Volume 2', got %q", result.RemovedEntries[0].Name)
		}

		// Volume 1 and Problem 100 exist in both snapshots
		if result.UnchangedCount != 2 {
			t.Errorf("expected 2 unchanged entries, got %d", result.UnchangedCount)
		}

		if result.Growth.Direction != growthDirectionGrew {
			t.Errorf("expected direction %q, got %q", growthDirectionGrew, result.Growth.Direction)
		}
		if result.Growth.NodeDelta != 1 {
			t.Errorf("expected node delta 1, got %d", result.Growth.NodeDelta)
		}
		if result.Growth.LeafDelta != 1 {
			t.Errorf("expected leaf delta 1, got %d", result.Growth.LeafDelta)
		}
	})

	t.Run("identical snapshots are unchanged", func(t *testing.T) {
		t.Parallel()

		children := func() []*model.CatalogNode {
			return []*model.CatalogNode{
				{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal},
			}
		}
		previous := newCompareSnapshot(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), children())
		current := newCompareSnapshot(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), children())

		result := compareSnapshots(previous, current)

		if len(result.AddedEntries) != 0 {
			t.Errorf("expected no added entries, got %d", len(result.AddedEntries))
		}
		if len(result.RemovedEntries) != 0 {
			t.Errorf("expected no removed entries, got %d", len(result.RemovedEntries))
		}
		if result.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged entry, got %d", result.UnchangedCount)
		}
		if result.Growth.Direction != growthDirectionUnchanged {
			t.Errorf("expected direction %q, got %q", growthDirectionUnchanged, result.Growth.Direction)
		}
	})

	t.Run("moved entry is not reported as changed", func(t *testing.T) {
		t.Parallel()

		previous := newCompareSnapshot(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal, Children: []*model.CatalogNode{
				{Name: "Problem 100", Address: "https://a.example/p100", Kind: model.KindLeaf},
			}},
			{Name: "Volume 2", Address: "https://a.example/v2", Kind: model.KindInternal},
		})
		// Problem 100 moved from Volume 1 to Volume 2.
		current := newCompareSnapshot(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal},
			{Name: "Volume 2", Address: "https://a.example/v2", Kind: model.KindInternal, Children: []*model.CatalogNode{
				{Name: "Problem 100", Address: "https://a.example/p100", Kind: model.KindLeaf},
			}},
		})

		result := compareSnapshots(previous, current)

		if len(result.AddedEntries) != 0 {
			t.Errorf("expected no added entries, got %v", result.AddedEntries)
		}
		if len(result.RemovedEntries) != 0 {
			t.Errorf("expected no removed entries, got %v", result.RemovedEntries)
		}
		if result.UnchangedCount != 3 {
			t.Errorf("expected 3 unchanged entries, got %d", result.UnchangedCount)
		}
	})

	t.Run("shrinking catalog", func(t *testing.T) {
		t.Parallel()

		previous := newCompareSnapshot(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal},
			{Name: "Volume 2", Address: "https://a.example/v2", Kind: model.KindInternal},
		})
		current := newCompareSnapshot(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), []*model.CatalogNode{
			{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal},
		})

		result := compareSnapshots(previous, current)

		if result.Growth.Direction != growthDirectionShrank {
			t.Errorf("expected direction %q, got %q", growthDirectionShrank, result.Growth.Direction)
		}
		if result.Growth.NodeDelta != -1 {
			t.Errorf("expected node delta -1, got %d", result.Growth.NodeDelta)
		}
	})

	t.Run("preserves crawl metadata", func(t *testing.T) {
		t.Parallel()

		previousTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		currentTime := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

		previous := newCompareSnapshot(t, previousTime, nil)
		current := newCompareSnapshot(t, currentTime, nil)
		current.Canceled = true

		result := compareSnapshots(previous, current)

		if !result.PreviousCrawl.CrawledAt.Equal(previousTime) {
			t.Errorf("expected previous crawl time %v, got %v", previousTime, result.PreviousCrawl.CrawledAt)
		}
		if !result.CurrentCrawl.CrawledAt.Equal(currentTime) {
			t.Errorf("expected current crawl time %v, got %v", currentTime, result.CurrentCrawl.CrawledAt)
		}
		if !result.CurrentCrawl.Canceled {
			t.Error("expected current crawl to be marked canceled")
		}
		if result.RootURL != "https://a.example/catalog" {
			t.Errorf("expected root URL to be preserved, got %q", result.RootURL)
		}
	})
}

// TestCollectEntries tests flattening a catalog tree into an entry map.
func TestCollectEntries(t *testing.T) {
	t.Parallel()

	t.Run("excludes root node", func(t *testing.T) {
		t.Parallel()

		root := &model.CatalogNode{
			Name:    "Archive",
			Address: "https://a.example/catalog",
			Kind:    model.KindInternal,
			Children: []*model.CatalogNode{
				{Name: "Volume 1", Address: "https://a.example/v1", Kind: model.KindInternal},
			},
		}

		entries := collectEntries(root)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		for _, e := range entries {
			if e.Name == "Archive" {
				t.Error("expected root node to be excluded")
			}
		}
	})

	t.Run("nil root yields empty map", func(t *testing.T) {
		t.Parallel()

		entries := collectEntries(nil)
		if len(entries) != 0 {
			t.Errorf("expected empty map, got %d entries", len(entries))
		}
	})

	t.Run("same address with different kind is distinct", func(t *testing.T) {
		t.Parallel()

		root := &model.CatalogNode{
			Name: "Archive",
			Kind: model.KindInternal,
			Children: []*model.CatalogNode{
				{Name: "Entry", Address: "https://a.example/x", Kind: model.KindInternal},
				{Name: "Entry", Address: "https://a.example/x", Kind: model.KindLeaf},
			},
		}

		entries := collectEntries(root)
		if len(entries) != 2 {
			t.Errorf("expected 2 distinct entries, got %d", len(entries))
		}
	})
}

// TestFormatDelta tests delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{delta: 5, want: "+5"},
		{delta: -3, want: "-3"},
		{delta: 0, want: "0"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

// TestFormatGrowthDirection tests growth direction formatting.
func TestFormatGrowthDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		growth Growth
		want   string
	}{
		{name: "grew", growth: Growth{Direction: growthDirectionGrew, NodeDelta: 3}, want: "GREW (+3 entries)"},
		{name: "shrank", growth: Growth{Direction: growthDirectionShrank, NodeDelta: -2}, want: "SHRANK (-2 entries)"},
		{name: "unchanged", growth: Growth{Direction: growthDirectionUnchanged}, want: "UNCHANGED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatGrowthDirection(tt.growth); got != tt.want {
				t.Errorf("formatGrowthDirection() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSortEntryRefs tests stable ordering of entry lists.
func TestSortEntryRefs(t *testing.T) {
	t.Parallel()

	entries := []EntryRef{
		{Name: "B", Address: "https://a.example/b"},
		{Name: "A", Address: "https://a.example/a2"},
		{Name: "A", Address: "https://a.example/a1"},
	}

	sortEntryRefs(entries)

	want := []string{"https://a.example/a1", "https://a.example/a2", "https://a.example/b"}
	for i, addr := range want {
		if entries[i].Address != addr {
			t.Errorf("entry %d: expected address %q, got %q", i, addr, entries[i].Address)
		}
	}
}

// TestEntryKey tests comparison key generation.
func TestEntryKey(t *testing.T) {
	t.Parallel()

	internal := EntryRef{Name: "X", Address: "https://a.example/x", Kind: model.KindInternal}
	leaf := EntryRef{Name: "X", Address: "https://a.example/x", Kind: model.KindLeaf}

	if entryKey(internal) == entryKey(leaf) {
		t.Error("expected keys to differ by kind")
	}
	if !strings.Contains(entryKey(internal), "internal") {
		t.Errorf("expected key to contain kind, got %q", entryKey(internal))
	}
}
