// Package credentials enumerates the cookie bundles the downloader may present.
//
// Candidate paths come from configuration. They are inspected once at startup
// and the files that exist become the ordered credential pool tried by the
// retrieval orchestrator. Bundles are opaque: only their size and line count
// are read, and only for health reporting.
package credentials
