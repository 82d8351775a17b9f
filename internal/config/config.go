package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Downloader contains settings for the external yt-dlp subprocess.
type Downloader struct {
	Binary         string `toml:"binary"`
	FFmpegLocation string `toml:"ffmpeg_location"`
	TimeoutMS      int    `toml:"timeout_ms"`
	KillGraceMS    int    `toml:"kill_grace_ms"`
	// PlayerClient selects an alternate YouTube player client (e.g. "android").
	// Empty leaves the downloader default in place.
	PlayerClient  string `toml:"player_client"`
	UserAgent     string `toml:"user_agent"`
	Retries       int    `toml:"retries"`
	SocketTimeout int    `toml:"socket_timeout"`
}

// Credentials lists candidate cookie bundles. Missing files are skipped at startup.
type Credentials struct {
	CookiePaths []string `toml:"cookie_paths"`
}

// Routes lists egress proxy routes tried by the retrieval orchestrator.
type Routes struct {
	Proxies []string `toml:"proxies"`
}

// Security contains the administrative credential that unlocks raw diagnostics.
type Security struct {
	AdminToken string `toml:"admin_token"`
}

// Retrieval contains orchestrator tuning.
type Retrieval struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	FailurePolicy string `toml:"failure_policy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes per-run daemon logs older than this; 0 keeps everything.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for Dripl.
//
// Configuration sections by subsystem:
//   - Paths: output/log directories and API bind address
//   - Downloader: yt-dlp binary, timeouts and pass-through flags
//   - Credentials: cookie bundle candidates
//   - Routes: egress proxies
//   - Security: admin token gating raw diagnostics
//   - Retrieval: concurrency cap and surfaced failure policy
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Downloader  Downloader  `toml:"downloader"`
	Credentials Credentials `toml:"credentials"`
	Routes      Routes      `toml:"routes"`
	Security    Security    `toml:"security"`
	Retrieval   Retrieval   `toml:"retrieval"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dripl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dripl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DownloadTimeout returns the hard wall-clock budget for one downloader attempt.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Downloader.TimeoutMS) * time.Millisecond
}

// KillGrace returns how long a timed-out downloader may linger after SIGTERM.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Downloader.KillGraceMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
