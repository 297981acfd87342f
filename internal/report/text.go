package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/catalogsnap/internal/model"
)

// TextWriter outputs human-readable text reports with an ASCII catalog
// tree. This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// showAddresses appends each entry's address after its name.
	showAddresses bool

	// maxDepth caps how deep the tree rendering descends.
	// Zero means unlimited.
	maxDepth int
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithAddresses configures the writer to print entry addresses.
func WithAddresses(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showAddresses = show
	}
}

// WithMaxDepth caps the rendered tree depth. Entries below the cap are
// summarized as a count. Zero means unlimited.
func WithMaxDepth(depth int) TextWriterOption {
	return func(w *TextWriter) {
		if depth >= 0 {
			w.maxDepth = depth
		}
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full snapshot in human-readable format.
func (w *TextWriter) Write(snap *model.Snapshot) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, snap)
	w.writeSummary(&sb, snap)
	w.writeFailures(&sb, snap)

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CATALOG TREE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
	w.writeNode(&sb, snap.Root, "", 0)
	sb.WriteString("\n")

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteTree outputs only the ASCII tree.
func (w *TextWriter) WriteTree(root *model.CatalogNode) (int, error) {
	var sb strings.Builder
	w.writeNode(&sb, root, "", 0)
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *TextWriter) writeHeader(sb *strings.Builder, snap *model.Snapshot) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        CATALOG SNAPSHOT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Catalog:     %s\n", snap.RootName))
	sb.WriteString(fmt.Sprintf("Root URL:    %s\n", snap.RootURL))
	sb.WriteString(fmt.Sprintf("Crawl Date:  %s\n", snap.CrawledAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", snap.Duration.Round(10*time.Millisecond)))

	if snap.Canceled {
		sb.WriteString("Status:      CANCELED (partial results)\n")
	} else if snap.FailureCount() > 0 {
		sb.WriteString(fmt.Sprintf("Status:      Complete with %d fetch failure(s)\n", snap.FailureCount()))
	} else {
		sb.WriteString("Status:      Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the crawl statistics section.
func (w *TextWriter) writeSummary(sb *strings.Builder, snap *model.Snapshot) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Pages fetched:  %d\n", snap.PageCount))
	sb.WriteString(fmt.Sprintf("  Total entries:  %d\n", snap.NodeCount()))
	sb.WriteString(fmt.Sprintf("  Leaf entries:   %d\n", snap.LeafCount()))
	sb.WriteString(fmt.Sprintf("  Max depth:      %d\n", snap.Root.MaxDepth()))
	sb.WriteString(fmt.Sprintf("  Failures:       %d\n", snap.FailureCount()))
	sb.WriteString("\n")
}

// writeFailures writes the fetch failure section, if any.
func (w *TextWriter) writeFailures(sb *strings.Builder, snap *model.Snapshot) {
	if snap.FailureCount() == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FETCH FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range snap.Failures {
		sb.WriteString(fmt.Sprintf("  [!] %s\n", f.Address))
		sb.WriteString(fmt.Sprintf("      %s\n", f.Error))
	}
	sb.WriteString("\n")
}

// writeNode renders one node and recurses into its children using the
// classic "|--" ASCII tree layout.
func (w *TextWriter) writeNode(sb *strings.Builder, node *model.CatalogNode, prefix string, depth int) {
	if depth == 0 {
		sb.WriteString(w.label(node))
		sb.WriteString("\n")
	}

	if w.maxDepth > 0 && depth >= w.maxDepth {
		if n := len(node.Children); n > 0 {
			sb.WriteString(prefix)
			sb.WriteString(fmt.Sprintf("`-- ... (%d more entries)\n", n))
		}
		return
	}

	for i, child := range node.Children {
		last := i == len(node.Children)-1

		connector := "|-- "
		childPrefix := prefix + "|   "
		if last {
			connector = "`-- "
			childPrefix = prefix + "    "
		}

		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(w.label(child))
		sb.WriteString("\n")

		w.writeNode(sb, child, childPrefix, depth+1)
	}
}

// label formats one node's display line.
func (w *TextWriter) label(node *model.CatalogNode) string {
	name := node.Name
	if node.Kind == model.KindInternal {
		name += "/"
	}
	if w.showAddresses && node.Address != "" {
		name += "  [" + node.Address + "]"
	}
	return name
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by catalogsnap\n")
	sb.WriteString("https://github.com/nao1215/catalogsnap\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
