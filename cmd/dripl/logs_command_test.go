package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dripl/internal/logs"
)

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLIEnv(t)
	logDir := env.cfg.Paths.LogDir
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	runLog := filepath.Join(logDir, "dripl-20260101T000000.000Z.log")
	if err := os.WriteFile(runLog, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write run log: %v", err)
	}
	if err := os.Symlink(runLog, logs.CurrentPath(logDir)); err != nil {
		t.Fatalf("symlink log pointer: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "two\nthree" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogsWithoutDaemonLogIsEmpty(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}
