package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/catalogsnap/internal/model"
)

// MarkdownWriter outputs snapshots in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full snapshot in Markdown format.
func (w *MarkdownWriter) Write(snap *model.Snapshot) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, snap)
	w.writeSummary(md, snap)
	w.writeFailures(md, snap)
	w.writeTree(md, snap.Root)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteTree outputs only the catalog tree in Markdown format.
func (w *MarkdownWriter) WriteTree(root *model.CatalogNode) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeTree(md, root)
	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, snap *model.Snapshot) {
	md.H1("Catalog Snapshot: " + snap.RootName)
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root URL", "`" + snap.RootURL + "`"},
			{"Crawl Date", snap.CrawledAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Fetched", strconv.Itoa(snap.PageCount)},
			{"Status", w.getStatusText(snap)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on snapshot state.
func (w *MarkdownWriter) getStatusText(snap *model.Snapshot) string {
	if snap.Canceled {
		return "⚠️ Canceled (partial results)"
	}
	if snap.FailureCount() > 0 {
		return "⚠️ Complete with " + strconv.Itoa(snap.FailureCount()) + " fetch failure(s)"
	}
	return "✅ Complete"
}

// writeSummary writes the entry statistics section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, snap *model.Snapshot) {
	md.H2("Summary")
	md.PlainText("")

	internal := snap.NodeCount() - snap.LeafCount()

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"📁 Categories", strconv.Itoa(internal)},
			{"📄 Leaf entries", strconv.Itoa(snap.LeafCount())},
			{"**Total**", "**" + strconv.Itoa(snap.NodeCount()) + "**"},
		},
	})
	md.PlainText("")

	if snap.NodeCount() > 1 {
		w.writePieChart(md, internal, snap.LeafCount())
	}

	w.writeAlert(md, snap)
}

// writePieChart writes a mermaid pie chart for the entry kind distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, internal, leaves int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Entry Kind Distribution"),
		piechart.WithShowData(true),
	)

	if internal > 0 {
		chart.LabelAndIntValue("Categories", uint64(internal))
	}
	if leaves > 0 {
		chart.LabelAndIntValue("Leaf entries", uint64(leaves))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, snap *model.Snapshot) {
	switch {
	case snap.Canceled:
		md.Warningf(
			"The crawl was canceled before completion. Only %d page(s) were fetched; the tree below is partial.",
			snap.PageCount,
		)
	case snap.FailureCount() > 0:
		md.Importantf(
			"%d listing page(s) could not be fetched. Their entries are shown without children.",
			snap.FailureCount(),
		)
	default:
		md.Tip("Every reachable listing page was fetched successfully.")
	}
	md.PlainText("")
}

// writeFailures writes the fetch failure section, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, snap *model.Snapshot) {
	if snap.FailureCount() == 0 {
		return
	}

	md.H2("Fetch Failures")
	md.PlainText("")

	rows := make([][]string, len(snap.Failures))
	for i, f := range snap.Failures {
		rows[i] = []string{
			"`" + truncateString(f.Address, 60) + "`",
			truncateString(f.Error, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Address", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTree writes the catalog tree as a nested bullet list with links.
func (w *MarkdownWriter) writeTree(md *markdown.Markdown, root *model.CatalogNode) {
	md.H2("Catalog Tree")
	md.PlainText("")

	var sb strings.Builder
	w.writeTreeNode(&sb, root, 0)
	md.PlainText(sb.String())
	md.PlainText("")
}

// writeTreeNode renders one node as an indented bullet and recurses.
// The markdown library only supports flat bullet lists, so nesting is
// done with manual two-space indentation.
func (w *MarkdownWriter) writeTreeNode(sb *strings.Builder, node *model.CatalogNode, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")

	if node.Address != "" {
		sb.WriteString("[" + escapeBrackets(node.Name) + "](" + node.Address + ")")
	} else {
		sb.WriteString(escapeBrackets(node.Name))
	}

	if node.Kind == model.KindInternal && node.HasLeafChildren {
		sb.WriteString(" *(contains leaf entries)*")
	}
	sb.WriteString("\n")

	for _, child := range node.Children {
		w.writeTreeNode(sb, child, depth+1)
	}
}

// escapeBrackets escapes square brackets so scraped names cannot break
// the link syntax.
func escapeBrackets(s string) string {
	s = strings.ReplaceAll(s, "[", `\[`)
	return strings.ReplaceAll(s, "]", `\]`)
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [catalogsnap](https://github.com/nao1215/catalogsnap)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
