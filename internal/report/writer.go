package report

import (
	"io"

	"github.com/nao1215/catalogsnap/internal/model"
)

// Writer defines the interface for snapshot report output.
// Implementations write crawl snapshots in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the full snapshot report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(snap *model.Snapshot) (int, error)

	// WriteTree outputs only the catalog tree portion.
	// This is useful for quick inspection without crawl metadata.
	WriteTree(root *model.CatalogNode) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write snapshots, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the snapshot to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(snap *model.Snapshot) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(snap)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteTree outputs the catalog tree to all configured Writers.
func (m *MultiWriter) WriteTree(root *model.CatalogNode) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteTree(root)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
