package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxAttrValueLen is the maximum length of a logged string attribute
// value. Entry names and addresses are scraped from arbitrary HTML, and
// a single malformed page can otherwise push kilobytes into one log line.
const MaxAttrValueLen = 256

// Ellipsis marks values cut at MaxAttrValueLen.
const Ellipsis = "...(truncated)"

// CleanHandler wraps an slog.Handler to keep scraped values loggable.
// It intercepts log records, truncates oversized string attribute values,
// and replaces control characters before passing the record to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites can log scraped values directly without pre-cleaning
type CleanHandler struct {
	// handler is the underlying slog handler that receives cleaned records.
	handler slog.Handler
}

// NewCleanHandler creates a new CleanHandler wrapping the given handler.
// All string attribute values will be cleaned before being passed to the
// underlying handler. If handler is nil, the returned CleanHandler will
// use slog.Default().Handler().
func NewCleanHandler(handler slog.Handler) *CleanHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &CleanHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *CleanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle cleans the record's attributes and passes it to the underlying handler.
func (h *CleanHandler) Handle(ctx context.Context, r slog.Record) error {
	cleaned := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		cleaned.AddAttrs(h.cleanAttr(a))
		return true
	})

	return h.handler.Handle(ctx, cleaned)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are cleaned before being added.
func (h *CleanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleanedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cleanedAttrs[i] = h.cleanAttr(a)
	}
	return &CleanHandler{handler: h.handler.WithAttrs(cleanedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *CleanHandler) WithGroup(name string) slog.Handler {
	return &CleanHandler{handler: h.handler.WithGroup(name)}
}

// cleanAttr cleans a single attribute, recursively handling groups.
func (h *CleanHandler) cleanAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		cleanedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cleanedAttrs[i] = h.cleanAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleanedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		if cleaned, changed := cleanValue(a.Value.String()); changed {
			return slog.String(a.Key, cleaned)
		}
	}

	return a
}

// cleanValue replaces control characters and truncates oversized values.
// The returned bool reports whether the value was modified.
func cleanValue(value string) (string, bool) {
	changed := false

	if strings.ContainsFunc(value, isControl) {
		value = strings.Map(func(r rune) rune {
			if isControl(r) {
				return ' '
			}
			return r
		}, value)
		changed = true
	}

	if len(value) > MaxAttrValueLen {
		cut := MaxAttrValueLen
		// Avoid cutting a multi-byte rune in half.
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut] + Ellipsis
		changed = true
	}

	return value, changed
}

// isControl reports whether the rune would corrupt a log line.
// Newlines are included so one record always stays on one line.
func isControl(r rune) bool {
	return unicode.IsControl(r)
}

// NewLogger creates a new slog.Logger writing human-readable text.
// Scraped attribute values are cleaned in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	cleanHandler := NewCleanHandler(textHandler)

	return slog.New(cleanHandler)
}

// NewJSONLogger creates a new slog.Logger that outputs JSON format.
// Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	cleanHandler := NewCleanHandler(jsonHandler)

	return slog.New(cleanHandler)
}
