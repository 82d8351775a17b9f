// Package logging assembles structured slog loggers and formatting helpers used
// across Dripl services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so retrieval code can tag log
// lines with request correlation IDs, attempt indexes, routes, and failure
// kinds. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
