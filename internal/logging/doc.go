// Package logging assembles the structured slog loggers used across chansync.
//
// It owns the console and JSON handlers, level and rotation plumbing, and
// context-aware helpers so pipeline code can automatically tag log lines with
// channel ids, item ids, and run ids. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
