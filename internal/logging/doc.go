// Package logging builds the slog loggers used by the atelier binaries.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with forge run IDs, iteration numbers,
// pipeline steps, and HTTP request IDs. NewNop returns a discarding logger for
// tests and wiring code that has nothing better to use.
package logging
