package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"dripl/internal/config"
	"dripl/internal/daemon"
	"dripl/internal/daemonctl"
	"dripl/internal/deps"
	"dripl/internal/logging"
	"dripl/internal/logs"
	"dripl/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the dripl daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("dripl-%s.log", runID))
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logPreflight(logger, preflight.RunAll(cfg))

	rt, err := Build(cfg, logger)
	if err != nil {
		logger.Error("build retrieval runtime", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, logger, rt.Orchestrator, rt.Credentials, rt.Routes)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and whether another daemon holds the lock"),
		)
		return err
	}

	// The pid file and log pointer belong to the lock holder.
	pidPath := daemonctl.PathsFor(cfg).PIDFile
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update dripl.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "dripl-*.log", Exclude: []string{logPath}},
	)

	<-signalCtx.Done()
	logger.Info("dripl daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := logs.CurrentPath(logDir)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("cookie_candidates", len(cfg.Credentials.CookiePaths)),
		logging.Int("routes", len(cfg.Routes.Proxies)),
		logging.Bool("admin_token_present", cfg.Security.AdminToken != ""),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
	}
	for _, status := range deps.CheckDownloader(cfg.Downloader.Binary, cfg.Downloader.FFmpegLocation) {
		key := strings.ReplaceAll(strings.ToLower(status.Name), "-", "")
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, result := range preflight.Failures(results) {
		attrs := []logging.Attr{
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		}
		if result.Optional {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "optional; retrieval continues without it"))
		} else {
			attrs = append(attrs,
				logging.String(logging.FieldErrorHint, "fix the configuration before serving requests"),
				logging.Alert("preflight"),
			)
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed", attrs...)
	}
}
