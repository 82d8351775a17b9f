package retrieval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dripl/internal/routes"
	"dripl/internal/ytdlp"
)

// ErrNoOutput reports a successful exit that left no artifact behind.
var ErrNoOutput = errors.New("no output file")

// AttemptRecord is one executed attempt. It lives only as long as the request.
type AttemptRecord struct {
	Index          int
	Route          routes.Route
	Credential     string
	State          ytdlp.State
	ExitCode       int
	Stdout         string
	Stderr         string
	Elapsed        time.Duration
	Classification *Classification
}

// Raw returns the attempt's combined diagnostics.
func (a AttemptRecord) Raw() string {
	stderr := strings.TrimSpace(a.Stderr)
	stdout := strings.TrimSpace(a.Stdout)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stderr + "\n" + stdout
	}
}

// Outcome is the terminal result of a request.
type Outcome struct {
	RequestID string
	// Artifact is the absolute artifact path on success.
	Artifact string
	// File is Artifact relative to the output directory, slash separated.
	File     string
	Failure  *Failure
	Attempts []AttemptRecord
}

// Failure is the surfaced classification once every attempt failed.
type Failure struct {
	Classification Classification
	Raw            string
}

// Succeeded reports whether an artifact was produced.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil && o.Artifact != ""
}

// ResolveArtifact locates the file produced in dir. A printed path that names
// an existing regular file inside dir wins (the last one printed); otherwise
// the newest regular file in dir is used.
func ResolveArtifact(dir string, printed []string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	for i := len(printed) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(printed[i])
		if candidate == "" {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		candidate = filepath.Clean(candidate)
		if !within(root, candidate) {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoOutput
		}
		return "", fmt.Errorf("list output dir: %w", err)
	}
	var (
		newest   string
		newestAt time.Time
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = filepath.Join(root, entry.Name())
			newestAt = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNoOutput
	}
	return newest, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
