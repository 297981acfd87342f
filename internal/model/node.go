package model

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a catalog position.
//
// Internal nodes own a listing page of their own and are eligible for
// expansion. Leaf nodes are terminal resources that are recorded in the
// tree but never fetched.
type Kind int

const (
	// KindInternal marks a node with its own listing page.
	KindInternal Kind = iota

	// KindLeaf marks a terminal catalog entry.
	KindLeaf
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the kind as its string form.
// We use strings rather than integers so that exported snapshots stay
// readable and stable across releases even if the ordinal values change.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the string form of a kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "internal":
		*k = KindInternal
	case "leaf":
		*k = KindLeaf
	default:
		return fmt.Errorf("unknown node kind %q", s)
	}
	return nil
}

// Entry is one row of a parsed listing page.
// Entries are transient: the crawler converts them to CatalogNodes and
// never reuses them across pages.
type Entry struct {
	// Name is the display label of the entry. May be empty and may repeat
	// across siblings; it carries no identity.
	Name string

	// Address is the resource address the entry points at, resolved
	// against the page it was found on.
	Address string

	// Kind tells whether the entry can be expanded further.
	Kind Kind
}

// CatalogNode represents one position in the catalog tree.
//
// Ownership: the root transitively owns the whole tree. A node is never
// shared between two parents, and nothing in the tree points upward.
type CatalogNode struct {
	// Name is the display label scraped from the listing page.
	Name string `json:"name"`

	// Address is the address used to fetch this node's listing page.
	// For leaves it is the address of the final resource, never fetched.
	Address string `json:"address"`

	// Kind tells whether this node is expandable or terminal.
	Kind Kind `json:"kind"`

	// HasLeafChildren is true if any direct child is a leaf.
	// It is derived exactly once, when this node's fetch completes.
	HasLeafChildren bool `json:"has_leaf_children,omitempty"`

	// Children holds the discovered entries in page-parse order.
	// The order is fixed once this node's fetch has been assembled.
	Children []*CatalogNode `json:"children"`
}

// NewCatalogNode creates a node from a parsed entry.
func NewCatalogNode(e Entry) *CatalogNode {
	return &CatalogNode{
		Name:    e.Name,
		Address: e.Address,
		Kind:    e.Kind,
	}
}

// Walk visits the node and all descendants in depth-first, child-order
// traversal. The walk stops early if fn returns false.
func (n *CatalogNode) Walk(fn func(node *CatalogNode, depth int) bool) {
	n.walk(0, fn)
}

func (n *CatalogNode) walk(depth int, fn func(node *CatalogNode, depth int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, child := range n.Children {
		if !child.walk(depth+1, fn) {
			return false
		}
	}
	return true
}

// NodeCount returns the total number of nodes in the subtree, including
// the receiver itself.
func (n *CatalogNode) NodeCount() int {
	count := 0
	n.Walk(func(*CatalogNode, int) bool {
		count++
		return true
	})
	return count
}

// LeafCount returns the number of leaf nodes in the subtree.
func (n *CatalogNode) LeafCount() int {
	count := 0
	n.Walk(func(node *CatalogNode, _ int) bool {
		if node.Kind == KindLeaf {
			count++
		}
		return true
	})
	return count
}

// MaxDepth returns the depth of the deepest node in the subtree.
// The receiver itself is at depth 0.
func (n *CatalogNode) MaxDepth() int {
	maxDepth := 0
	n.Walk(func(_ *CatalogNode, depth int) bool {
		if depth > maxDepth {
			maxDepth = depth
		}
		return true
	})
	return maxDepth
}
