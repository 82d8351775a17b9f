package ytdlp

import (
	"strings"
	"time"
)

// State is the terminal state of one downloader attempt.
type State string

const (
	// StateSucceeded means the downloader exited zero.
	StateSucceeded State = "succeeded"
	// StateExited means the downloader exited non-zero.
	StateExited State = "exited"
	// StateTimedOut means the attempt budget expired and the process group was killed.
	StateTimedOut State = "timed_out"
	// StateSpawnFailed means the downloader could not be started.
	StateSpawnFailed State = "spawn_failed"
)

// Result captures one attempt.
type Result struct {
	State    State
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	// Err carries the spawn or wait error for non-success states.
	Err error
}

// Succeeded reports whether the downloader exited zero.
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// PrintedPaths returns the non-empty stdout lines in order. With
// --print after_move:filepath these are the final artifact paths.
func (r Result) PrintedPaths() []string {
	var out []string
	for _, line := range strings.Split(r.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
