// Package preflight provides readiness checks for the filesystem paths and
// external binaries Dripl depends on.
//
// These checks run in two contexts:
//   - The daemon runtime calls RunAll at startup and logs every failure so a
//     misconfigured host is obvious before the first request arrives.
//   - The CLI "dripl config validate" command renders the same results.
//
// Checks never modify state; a failed check is reported, not fatal.
package preflight
