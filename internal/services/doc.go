// Package services defines shared utilities consumed by the retrieval
// orchestrator, the downloader supervisor, and the API layer.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that attach component
//     and operation context to downloader and filesystem failures.
package services
