// Package logs reads the daemon's log files for the CLI.
//
// The daemon writes one file per run and keeps dripl.log pointing at the
// active one. Last returns the trailing lines of that file, Since resumes
// from a byte offset, and Follow polls for appended lines until its context
// ends. Only complete lines are returned; a partially written line is left
// for the next read.
package logs
