package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dripl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The downloader binary points at a name that never resolves, so tests that
// need a process must opt in with WithDownloaderScript.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Downloader.Binary = "clearly-not-present-yt-dlp"
	cfgVal.Downloader.TimeoutMS = 10000
	cfgVal.Downloader.KillGraceMS = 200
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDownloaderScript writes script as an executable stub and points
// downloader.binary at it.
func WithDownloaderScript(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "yt-dlp")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub downloader: %v", err)
		}
		b.cfg.Downloader.Binary = target
	}
}

// WithCookieFile writes a small Netscape cookie file under the base dir and
// appends it to credentials.cookie_paths.
func WithCookieFile(name string) ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.baseDir, "cookies", name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			b.t.Fatalf("mkdir cookie dir: %v", err)
		}
		if err := os.WriteFile(target, []byte(netscapeCookies), 0o600); err != nil {
			b.t.Fatalf("write cookie file %s: %v", name, err)
		}
		b.cfg.Credentials.CookiePaths = append(b.cfg.Credentials.CookiePaths, target)
	}
}

// WithProxies sets routes.proxies.
func WithProxies(proxies ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Routes.Proxies = append([]string(nil), proxies...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// WriteConfigFile encodes cfg as TOML next to its temp directories and
// returns the file path, for tests that go through config.Load.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "dripl.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// ClearEnv unsets every environment variable config.Load falls back to.
func ClearEnv(t testing.TB) {
	t.Helper()
	for _, key := range []string{
		"DRIPL_OUTPUT_DIR", "DRIPL_API_TOKEN", "DRIPL_ADMIN_TOKEN",
		"YTDLP_BINARY", "FFMPEG_LOCATION", "YTDLP_TIMEOUT_MS",
		"YTDLP_PLAYER_CLIENT", "YTDLP_COOKIE_PATHS", "YTDLP_PROXIES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
