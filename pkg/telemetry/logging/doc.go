// Package logging provides structured logging for Janus.
//
// The package wraps log/slog with a runtime-adjustable level (backing the
// @scribe administrative action), selectable output formats, and optional
// credential redaction so authorization header values and password fields
// never reach the log stream.
package logging
