package model

import (
	"time"

	"github.com/google/uuid"
)

// FetchFailure records one listing page that could not be retrieved.
// The owning node stays in the tree with no children; the failure is kept
// on the snapshot so reports and the archive can surface it.
type FetchFailure struct {
	// Address is the address whose fetch failed.
	Address string `json:"address"`

	// Error is the failure description. We store the string rather than
	// the error value so snapshots survive JSON round-trips.
	Error string `json:"error"`
}

// Snapshot is the result of one complete crawl of a catalog root.
//
// Design decision: The crawler returns a Snapshot rather than a bare root
// node because every consumer (report writers, the archive database, the
// compare command) needs the crawl metadata alongside the tree, and
// threading separate values through all of them proved noisy.
type Snapshot struct {
	// SessionID groups the snapshots produced by a single invocation.
	// A batch crawl of several roots shares one session ID.
	SessionID string `json:"session_id"`

	// RootName is the display label given to the root node.
	RootName string `json:"root_name"`

	// RootURL is the address the crawl started from, as given (not
	// normalized).
	RootURL string `json:"root_url"`

	// CrawledAt is the time the crawl started.
	CrawledAt time.Time `json:"crawled_at"`

	// Duration is the wall-clock time the crawl took.
	Duration time.Duration `json:"duration"`

	// PageCount is the number of listing pages fetched successfully.
	PageCount int `json:"page_count"`

	// Canceled is true when the crawl was interrupted and the tree is
	// partial. The tree is still well formed.
	Canceled bool `json:"canceled,omitempty"`

	// Failures lists the listing pages that could not be fetched.
	Failures []FetchFailure `json:"failures,omitempty"`

	// Root is the assembled catalog tree.
	Root *CatalogNode `json:"root"`
}

// NewSnapshot creates a Snapshot for a crawl that is about to start.
// The root node is created as an internal node so the scheduler can
// expand it.
func NewSnapshot(rootName, rootURL string) *Snapshot {
	return &Snapshot{
		SessionID: uuid.NewString(),
		RootName:  rootName,
		RootURL:   rootURL,
		CrawledAt: time.Now(),
		Root: &CatalogNode{
			Name:    rootName,
			Address: rootURL,
			Kind:    KindInternal,
		},
	}
}

// NodeCount returns the total number of nodes in the snapshot tree.
func (s *Snapshot) NodeCount() int {
	if s.Root == nil {
		return 0
	}
	return s.Root.NodeCount()
}

// LeafCount returns the number of leaf nodes in the snapshot tree.
func (s *Snapshot) LeafCount() int {
	if s.Root == nil {
		return 0
	}
	return s.Root.LeafCount()
}

// FailureCount returns the number of failed page fetches.
func (s *Snapshot) FailureCount() int {
	return len(s.Failures)
}

// RecordFailure appends a fetch failure to the snapshot.
func (s *Snapshot) RecordFailure(address string, err error) {
	s.Failures = append(s.Failures, FetchFailure{
		Address: address,
		Error:   err.Error(),
	})
}
