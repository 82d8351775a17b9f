package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	if err := c.normalizeCredentials(); err != nil {
		return err
	}
	c.normalizeRoutes()
	c.normalizeSecurity()
	c.normalizeRetrieval()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DRIPL_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DRIPL_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeDownloader() error {
	if value, ok := os.LookupEnv("YTDLP_BINARY"); ok && strings.TrimSpace(value) != "" {
		c.Downloader.Binary = value
	}
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultYTDLPBinary
	}

	c.Downloader.FFmpegLocation = strings.TrimSpace(c.Downloader.FFmpegLocation)
	if c.Downloader.FFmpegLocation == "" {
		if value, ok := os.LookupEnv("FFMPEG_LOCATION"); ok {
			c.Downloader.FFmpegLocation = strings.TrimSpace(value)
		}
	}
	if c.Downloader.FFmpegLocation != "" {
		expanded, err := expandPath(c.Downloader.FFmpegLocation)
		if err != nil {
			return fmt.Errorf("downloader.ffmpeg_location: %w", err)
		}
		c.Downloader.FFmpegLocation = expanded
	}

	if value, ok := os.LookupEnv("YTDLP_TIMEOUT_MS"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("YTDLP_TIMEOUT_MS: %w", err)
		}
		c.Downloader.TimeoutMS = parsed
	}
	if c.Downloader.TimeoutMS == 0 {
		c.Downloader.TimeoutMS = defaultTimeoutMS
	}
	if c.Downloader.KillGraceMS == 0 {
		c.Downloader.KillGraceMS = defaultKillGraceMS
	}

	c.Downloader.PlayerClient = strings.TrimSpace(c.Downloader.PlayerClient)
	if c.Downloader.PlayerClient == "" {
		if value, ok := os.LookupEnv("YTDLP_PLAYER_CLIENT"); ok {
			c.Downloader.PlayerClient = strings.TrimSpace(value)
		}
	}
	c.Downloader.UserAgent = strings.TrimSpace(c.Downloader.UserAgent)
	if c.Downloader.UserAgent == "" {
		c.Downloader.UserAgent = defaultUserAgent
	}
	if c.Downloader.SocketTimeout == 0 {
		c.Downloader.SocketTimeout = defaultSocketTimeout
	}
	return nil
}

func (c *Config) normalizeCredentials() error {
	paths := c.Credentials.CookiePaths
	if len(paths) == 0 {
		if value, ok := os.LookupEnv("YTDLP_COOKIE_PATHS"); ok {
			paths = filepath.SplitList(value)
		}
	}
	normalized := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, raw := range paths {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		expanded, err := expandPath(raw)
		if err != nil {
			return fmt.Errorf("credentials.cookie_paths: %w", err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		normalized = append(normalized, expanded)
	}
	c.Credentials.CookiePaths = normalized
	return nil
}

func (c *Config) normalizeRoutes() {
	proxies := c.Routes.Proxies
	if len(proxies) == 0 {
		if value, ok := os.LookupEnv("YTDLP_PROXIES"); ok {
			proxies = strings.Split(value, ",")
		}
	}
	normalized := make([]string, 0, len(proxies))
	for _, proxy := range proxies {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			normalized = append(normalized, proxy)
		}
	}
	c.Routes.Proxies = normalized
}

func (c *Config) normalizeSecurity() {
	c.Security.AdminToken = strings.TrimSpace(c.Security.AdminToken)
	if c.Security.AdminToken == "" {
		if value, ok := os.LookupEnv("DRIPL_ADMIN_TOKEN"); ok {
			c.Security.AdminToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRetrieval() {
	if c.Retrieval.MaxConcurrent == 0 {
		c.Retrieval.MaxConcurrent = defaultMaxConcurrent
	}
	c.Retrieval.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Retrieval.FailurePolicy))
	if c.Retrieval.FailurePolicy == "" {
		c.Retrieval.FailurePolicy = defaultFailurePolicy
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
