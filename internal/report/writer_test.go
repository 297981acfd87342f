package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/catalogsnap/internal/model"
)

// newTestSnapshot builds a small snapshot:
//
//	Archive/
//	|-- Volume 1/
//	|   |-- Problem 100
//	|   `-- Problem 101
//	`-- Volume 2/
func newTestSnapshot() *model.Snapshot {
	snap := model.NewSnapshot("Archive", "https://judge.example/catalog")
	snap.CrawledAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	snap.Duration = 1500 * time.Millisecond
	snap.PageCount = 3

	v1 := model.NewCatalogNode(model.Entry{
		Name: "Volume 1", Address: "https://judge.example/v1", Kind: model.KindInternal,
	})
	v1.HasLeafChildren = true
	v1.Children = []*model.CatalogNode{
		model.NewCatalogNode(model.Entry{Name: "Problem 100", Address: "https://judge.example/p100", Kind: model.KindLeaf}),
		model.NewCatalogNode(model.Entry{Name: "Problem 101", Address: "https://judge.example/p101", Kind: model.KindLeaf}),
	}

	v2 := model.NewCatalogNode(model.Entry{
		Name: "Volume 2", Address: "https://judge.example/v2", Kind: model.KindInternal,
	})

	snap.Root.Children = []*model.CatalogNode{v1, v2}
	return snap
}

func TestTextWriterWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := newTestSnapshot()

	n, err := NewTextWriter(&buf).Write(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"CATALOG SNAPSHOT",
		"Catalog:     Archive",
		"Root URL:    https://judge.example/catalog",
		"Pages fetched:  3",
		"Total entries:  5",
		"Leaf entries:   2",
		"Status:      Complete",
		"|-- Volume 1/",
		"|   |-- Problem 100",
		"|   `-- Problem 101",
		"`-- Volume 2/",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriterFailuresSection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := newTestSnapshot()
	snap.RecordFailure("https://judge.example/v2", errors.New("status 503"))

	if _, err := NewTextWriter(&buf).Write(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "FETCH FAILURES") {
		t.Error("expected failure section")
	}
	if !strings.Contains(out, "[!] https://judge.example/v2") {
		t.Error("expected failed address listed")
	}
	if !strings.Contains(out, "Complete with 1 fetch failure(s)") {
		t.Error("expected failure count in status line")
	}
}

func TestTextWriterCanceledStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := newTestSnapshot()
	snap.Canceled = true

	if _, err := NewTextWriter(&buf).Write(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "CANCELED (partial results)") {
		t.Error("expected canceled status line")
	}
}

func TestTextWriterWithAddresses(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewTextWriter(&buf, WithAddresses(true)).WriteTree(newTestSnapshot().Root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "[https://judge.example/p100]") {
		t.Errorf("expected addresses rendered, got:\n%s", buf.String())
	}
}

func TestTextWriterWithMaxDepth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewTextWriter(&buf, WithMaxDepth(1)).WriteTree(newTestSnapshot().Root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "Problem 100") {
		t.Error("expected entries below the depth cap hidden")
	}
	if !strings.Contains(out, "(2 more entries)") {
		t.Errorf("expected hidden entry count, got:\n%s", out)
	}
}

func TestJSONWriterRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := newTestSnapshot()

	if _, err := NewJSONWriter(&buf).Write(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded model.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RootName != "Archive" || decoded.Root == nil {
		t.Errorf("decoded snapshot incomplete: %+v", decoded)
	}
	if len(decoded.Root.Children) != 2 {
		t.Errorf("expected 2 root children after round trip, got %d", len(decoded.Root.Children))
	}
}

func TestJSONWriterPrettyPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(newTestSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestFullJSONWriterIncludesVersion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(newTestSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wrapped JSONReport
	if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if wrapped.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", wrapped.Version)
	}
	if wrapped.Snapshot == nil || wrapped.Snapshot.RootName != "Archive" {
		t.Error("expected wrapped snapshot present")
	}
}

func TestMarkdownWriterWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	snap := newTestSnapshot()
	snap.RecordFailure("https://judge.example/v2", errors.New("status 503"))

	if _, err := NewMarkdownWriter(&buf).Write(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Catalog Snapshot: Archive",
		"Root URL",
		"`https://judge.example/catalog`",
		"## Summary",
		"mermaid",
		"## Fetch Failures",
		"## Catalog Tree",
		"[Volume 1](https://judge.example/v1) *(contains leaf entries)*",
		"  - [Problem 100](https://judge.example/p100)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriterEscapesNames(t *testing.T) {
	t.Parallel()

	root := model.NewCatalogNode(model.Entry{
		Name: "Tricky [name]", Address: "https://judge.example/", Kind: model.KindInternal,
	})

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).WriteTree(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `\[name\]`) {
		t.Errorf("expected brackets escaped, got:\n%s", buf.String())
	}
}

// failingWriter errors on every write, for MultiWriter error propagation.
type failingWriter struct{}

func (failingWriter) Write(*model.Snapshot) (int, error) {
	return 0, errors.New("write failed")
}

func (failingWriter) WriteTree(*model.CatalogNode) (int, error) {
	return 0, errors.New("write failed")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()
		var text, jsonBuf bytes.Buffer
		mw := NewMultiWriter(NewTextWriter(&text), NewJSONWriter(&jsonBuf))

		if _, err := mw.Write(newTestSnapshot()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text.Len() == 0 || jsonBuf.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewTextWriter(&buf))

		if _, err := mw.Write(newTestSnapshot()); err == nil {
			t.Fatal("expected an error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers skipped after an error")
		}
	})
}
