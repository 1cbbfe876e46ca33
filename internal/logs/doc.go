// Package logs reads atelier's own log files for the CLI.
//
// It locates the newest daemon log or a forge run log, returns the last N
// lines with bounded memory, and follows a file as it grows. Follow polls
// and stops when the caller's context is cancelled.
package logs
