package ytdlp

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Format selects the output the downloader produces.
type Format string

const (
	// FormatAudio extracts the best audio stream and converts it to mp3.
	FormatAudio Format = "audio"
	// FormatVideo muxes the best video and audio streams into mp4.
	FormatVideo Format = "video"
)

// ParseFormat normalizes a user supplied format. Empty selects video.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "video", "mp4":
		return FormatVideo, nil
	case "audio", "mp3":
		return FormatAudio, nil
	default:
		return "", fmt.Errorf("unsupported format %q", value)
	}
}

// OutputTemplate is the file name template used inside each request directory.
const OutputTemplate = "%(title).80s-%(id)s.%(ext)s"

// Settings holds the pass-through flags shared by every attempt.
type Settings struct {
	UserAgent      string
	Retries        int
	SocketTimeout  int
	PlayerClient   string
	FFmpegLocation string
}

// Invocation describes one attempt.
type Invocation struct {
	URL        string
	Format     Format
	Credential string
	Route      string
	OutputDir  string
}

// BuildArgs returns the downloader argument list for inv. The list is closed:
// nothing from the request reaches the command line except the URL (after
// "--"), the selected route, and the output directory.
func BuildArgs(settings Settings, inv Invocation) []string {
	retries := strconv.Itoa(settings.Retries)
	args := []string{
		"--ignore-config",
		"--no-playlist",
		"--newline",
		"--no-progress",
		"--restrict-filenames",
		"--no-part",
		"--user-agent", settings.UserAgent,
		"--retries", retries,
		"--fragment-retries", retries,
		"--retry-sleep", "exp=1:8",
	}
	if settings.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(settings.SocketTimeout))
	}

	switch inv.Format {
	case FormatAudio:
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "mp3")
	default:
		args = append(args, "-f", "bv*+ba/b", "--merge-output-format", "mp4")
	}

	args = append(args,
		"-o", filepath.Join(inv.OutputDir, OutputTemplate),
		"--print", "after_move:filepath",
	)
	if inv.Credential != "" {
		args = append(args, "--cookies", inv.Credential)
	}
	if inv.Route != "" {
		args = append(args, "--proxy", inv.Route)
	}
	if client := strings.TrimSpace(settings.PlayerClient); client != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+client)
	}
	if settings.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", settings.FFmpegLocation)
	}
	return append(args, "--", inv.URL)
}
