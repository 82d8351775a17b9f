package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"dripl/internal/api"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("yt-dlp", statusError, "not available", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "yt-dlp:", "[ERROR] not available")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("yt-dlp", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "yt-dlp", Available: false, Detail: `binary "yt-dlp" not found`},
		{Name: "ffmpeg", Available: true, Command: "/usr/bin/ffmpeg", Optional: true},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `[ERROR] binary "yt-dlp" not found`) {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] ready (/usr/bin/ffmpeg)") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] missing yt-dlp") {
		t.Fatalf("unexpected summary %q", lines[2])
	}
}

func TestDependencyLinesOptionalMissingWarns(t *testing.T) {
	lines := dependencyLines([]api.DependencyStatus{{Name: "ffmpeg", Optional: true}}, false)
	if !strings.Contains(lines[0], "[WARN] not available") {
		t.Fatalf("expected warning for optional dependency, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK]") {
		t.Fatalf("expected healthy summary, got %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestDialAddressSubstitutesLoopback(t *testing.T) {
	cases := map[string]string{
		"0.0.0.0:7490":   "127.0.0.1:7490",
		":7490":          "127.0.0.1:7490",
		"[::]:7490":      "127.0.0.1:7490",
		"10.0.0.5:7490":  "10.0.0.5:7490",
		"not-an-address": "not-an-address",
	}
	for input, want := range cases {
		if got := dialAddress(input); got != want {
			t.Fatalf("dialAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRenderHealthDaemonSection(t *testing.T) {
	var buf bytes.Buffer
	renderHealth(&buf, api.HealthResponse{
		Daemon: &api.DaemonStatus{Running: true, PID: 4242, APIAddress: "127.0.0.1:7487"},
	}, false)
	out := buf.String()
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "4242")
	requireContains(t, out, "listening on 127.0.0.1:7487")

	buf.Reset()
	renderHealth(&buf, api.HealthResponse{}, false)
	if strings.Contains(buf.String(), "== Daemon ==") {
		t.Fatalf("daemon section rendered without status:\n%s", buf.String())
	}
}
