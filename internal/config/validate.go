package config

import (
	"errors"
	"fmt"
	"strings"

	"dripl/internal/routes"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateRoutes(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if err := ensurePositiveMap(map[string]int{
		"downloader.timeout_ms":     c.Downloader.TimeoutMS,
		"downloader.kill_grace_ms":  c.Downloader.KillGraceMS,
		"downloader.socket_timeout": c.Downloader.SocketTimeout,
	}); err != nil {
		return err
	}
	if c.Downloader.Retries < 0 {
		return errors.New("downloader.retries must be >= 0")
	}
	return nil
}

func (c *Config) validateRoutes() error {
	for i, proxy := range c.Routes.Proxies {
		if err := routes.Validate(proxy); err != nil {
			return fmt.Errorf("routes.proxies[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.MaxConcurrent <= 0 {
		return errors.New("retrieval.max_concurrent must be positive")
	}
	switch c.Retrieval.FailurePolicy {
	case FailurePolicyLast, FailurePolicyMostSpecific:
		return nil
	default:
		return fmt.Errorf("retrieval.failure_policy: unsupported value %q (use %q or %q)",
			c.Retrieval.FailurePolicy, FailurePolicyLast, FailurePolicyMostSpecific)
	}
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
