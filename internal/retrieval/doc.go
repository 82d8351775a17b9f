// Package retrieval orchestrates resilient media downloads.
//
// A Request names a remote URL and an output format. The orchestrator plans
// an ordered, never-empty list of (route, credential) attempts, runs them one
// at a time through the downloader supervisor, and stops at the first attempt
// that yields an artifact. Failed attempts are classified from their
// diagnostic text against an ordered signature table; once every attempt is
// exhausted the surfaced classification is mapped to a stable API response
// (HTTP status, error key, remediation message).
//
// Each request writes into its own subdirectory of the shared output
// directory, so concurrent requests never compete for artifact identity.
package retrieval
