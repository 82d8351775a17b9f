package ytdlp_test

import (
	"path/filepath"
	"slices"
	"testing"

	"dripl/internal/ytdlp"
)

func valueAfter(args []string, flag string) (string, bool) {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return "", false
	}
	return args[idx+1], true
}

func TestBuildArgsVideoMinimal(t *testing.T) {
	settings := ytdlp.Settings{UserAgent: "UA/1.0", Retries: 3, SocketTimeout: 20}
	inv := ytdlp.Invocation{URL: "https://example.com/watch?v=abc", Format: ytdlp.FormatVideo, OutputDir: "/srv/out/req"}

	args := ytdlp.BuildArgs(settings, inv)

	if got, _ := valueAfter(args, "-f"); got != "bv*+ba/b" {
		t.Fatalf("unexpected video format selector: %q", got)
	}
	if got, _ := valueAfter(args, "--merge-output-format"); got != "mp4" {
		t.Fatalf("expected mp4 merge, got %q", got)
	}
	if got, _ := valueAfter(args, "-o"); got != filepath.Join("/srv/out/req", ytdlp.OutputTemplate) {
		t.Fatalf("unexpected output template: %q", got)
	}
	if got, _ := valueAfter(args, "--user-agent"); got != "UA/1.0" {
		t.Fatalf("unexpected user agent: %q", got)
	}
	if got, _ := valueAfter(args, "--retries"); got != "3" {
		t.Fatalf("unexpected retries: %q", got)
	}
	if got, _ := valueAfter(args, "--print"); got != "after_move:filepath" {
		t.Fatalf("expected final path print, got %q", got)
	}
	for _, flag := range []string{"--restrict-filenames", "--no-playlist", "--ignore-config"} {
		if !slices.Contains(args, flag) {
			t.Fatalf("expected %s in %v", flag, args)
		}
	}
	for _, flag := range []string{"--cookies", "--proxy", "--extractor-args", "--ffmpeg-location", "-x"} {
		if slices.Contains(args, flag) {
			t.Fatalf("did not expect %s in %v", flag, args)
		}
	}
	if n := len(args); args[n-2] != "--" || args[n-1] != inv.URL {
		t.Fatalf("expected URL after end-of-options marker, got %v", args[n-2:])
	}
}

func TestBuildArgsAudioWithEverything(t *testing.T) {
	settings := ytdlp.Settings{
		UserAgent:      "UA/1.0",
		Retries:        1,
		PlayerClient:   "android",
		FFmpegLocation: "/opt/ffmpeg/bin/ffmpeg",
	}
	inv := ytdlp.Invocation{
		URL:        "https://example.com/v",
		Format:     ytdlp.FormatAudio,
		Credential: "/etc/dripl/cookies.txt",
		Route:      "http://proxy.example:8080",
		OutputDir:  "/tmp/out",
	}

	args := ytdlp.BuildArgs(settings, inv)

	if got, _ := valueAfter(args, "--audio-format"); got != "mp3" {
		t.Fatalf("expected mp3 extraction, got %q", got)
	}
	if !slices.Contains(args, "-x") {
		t.Fatal("expected audio extraction flag")
	}
	if got, _ := valueAfter(args, "--cookies"); got != inv.Credential {
		t.Fatalf("unexpected cookies: %q", got)
	}
	if got, _ := valueAfter(args, "--proxy"); got != inv.Route {
		t.Fatalf("unexpected proxy: %q", got)
	}
	if got, _ := valueAfter(args, "--extractor-args"); got != "youtube:player_client=android" {
		t.Fatalf("unexpected extractor args: %q", got)
	}
	if got, _ := valueAfter(args, "--ffmpeg-location"); got != settings.FFmpegLocation {
		t.Fatalf("unexpected ffmpeg location: %q", got)
	}
	if slices.Contains(args, "--socket-timeout") {
		t.Fatal("expected socket timeout omitted when zero")
	}
}

func TestBuildArgsKeepsHostileURLOutOfOptions(t *testing.T) {
	inv := ytdlp.Invocation{URL: "--exec=rm -rf /", OutputDir: "/tmp/out"}
	args := ytdlp.BuildArgs(ytdlp.Settings{}, inv)
	marker := slices.Index(args, "--")
	if marker < 0 || marker != len(args)-2 {
		t.Fatalf("expected end-of-options marker before URL, got %v", args)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]ytdlp.Format{
		"":       ytdlp.FormatVideo,
		"video":  ytdlp.FormatVideo,
		"MP4":    ytdlp.FormatVideo,
		" audio": ytdlp.FormatAudio,
		"mp3":    ytdlp.FormatAudio,
	}
	for input, want := range tests {
		got, err := ytdlp.ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ytdlp.ParseFormat("flac"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestResultPrintedPaths(t *testing.T) {
	result := ytdlp.Result{Stdout: "\n/tmp/out/a.mp4\n  \n/tmp/out/b.mp4\n"}
	paths := result.PrintedPaths()
	if len(paths) != 2 || paths[1] != "/tmp/out/b.mp4" {
		t.Fatalf("unexpected printed paths: %v", paths)
	}
}
