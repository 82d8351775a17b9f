package retrieval_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dripl/internal/retrieval"
)

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestResolveArtifactPrefersPrintedPath(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	printed := filepath.Join(dir, "printed.mp4")
	writeFile(t, printed, now.Add(-time.Hour))
	writeFile(t, filepath.Join(dir, "newer.webm"), now)

	got, err := retrieval.ResolveArtifact(dir, []string{"noise", printed})
	if err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	if got != printed {
		t.Fatalf("expected printed path %q, got %q", printed, got)
	}
}

func TestResolveArtifactIgnoresPathsOutsideDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "req")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(parent, "outside.mp4")
	writeFile(t, outside, time.Now())
	inside := filepath.Join(dir, "inside.mp4")
	writeFile(t, inside, time.Now().Add(-time.Minute))

	got, err := retrieval.ResolveArtifact(dir, []string{outside, "../outside.mp4"})
	if err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	if got != inside {
		t.Fatalf("expected fallback to %q, got %q", inside, got)
	}
}

func TestResolveArtifactFallsBackToNewest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(dir, "old.mp3"), now.Add(-2*time.Hour))
	newest := filepath.Join(dir, "new.mp3")
	writeFile(t, newest, now)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := retrieval.ResolveArtifact(dir, nil)
	if err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	if got != newest {
		t.Fatalf("expected %q, got %q", newest, got)
	}
}

func TestResolveArtifactNoOutput(t *testing.T) {
	if _, err := retrieval.ResolveArtifact(t.TempDir(), []string{"/nonexistent/file.mp4"}); !errors.Is(err, retrieval.ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput for empty dir, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := retrieval.ResolveArtifact(missing, nil); !errors.Is(err, retrieval.ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput for missing dir, got %v", err)
	}
}
