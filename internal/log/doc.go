// Package log provides slog helpers for catalogsnap.
// Its handler wrapper keeps log lines readable when attribute values
// come from untrusted HTML, such as entry names and catalog addresses.
package log
