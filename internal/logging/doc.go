// Package logging configures log/slog for classindex.
//
// Records are written as JSON to a size-rotated file under
// ~/.classindex/logs/. With --debug a human-readable text handler is
// attached to stderr as well.
package logging
