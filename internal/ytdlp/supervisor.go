package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"dripl/internal/logging"
	"dripl/internal/services"
)

const (
	// DefaultTimeout is the per-attempt wall-clock budget.
	DefaultTimeout = 120 * time.Second
	// DefaultGrace is how long a timed-out process group may linger after SIGTERM.
	DefaultGrace = 2 * time.Second
)

// Option configures the supervisor.
type Option func(*Supervisor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Supervisor) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithTimeout overrides the per-attempt wall-clock budget.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithGrace overrides the SIGTERM to SIGKILL grace period.
func WithGrace(grace time.Duration) Option {
	return func(s *Supervisor) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logging.NewComponentLogger(logger, "ytdlp")
	}
}

// Supervisor runs single downloader attempts.
type Supervisor struct {
	binary   string
	settings Settings
	timeout  time.Duration
	grace    time.Duration
	exec     Executor
	logger   *slog.Logger
}

// New constructs a supervisor for binary.
func New(binary string, settings Settings, opts ...Option) (*Supervisor, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	s := &Supervisor{
		binary:   binary,
		settings: settings,
		timeout:  DefaultTimeout,
		grace:    DefaultGrace,
		exec:     processExecutor{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Binary returns the configured downloader executable.
func (s *Supervisor) Binary() string {
	return s.binary
}

// Timeout returns the per-attempt budget.
func (s *Supervisor) Timeout() time.Duration {
	return s.timeout
}

// Run executes one attempt and always returns a terminal Result.
func (s *Supervisor) Run(ctx context.Context, inv Invocation) Result {
	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		return Result{
			State:    StateSpawnFailed,
			ExitCode: -1,
			Err:      services.Wrap(services.ErrConfiguration, "ytdlp", "prepare output", inv.OutputDir, err),
		}
	}

	// Only the attempt budget stops a running downloader; the caller's
	// cancellation is observed between attempts.
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	cmd := Command{
		Binary:       s.binary,
		Args:         BuildArgs(s.settings, inv),
		Env:          append(os.Environ(), "PYTHONIOENCODING=utf-8"),
		Grace:        s.grace,
		CaptureLimit: defaultCaptureLimit,
	}
	log := logging.WithContext(ctx, s.logger)
	log.Debug("downloader starting",
		logging.String("command", s.binary),
		logging.Int("args", len(cmd.Args)),
		logging.Duration("timeout", s.timeout),
	)

	result := s.exec.Execute(attemptCtx, cmd)
	switch result.State {
	case StateSpawnFailed:
		result.Err = services.Wrap(services.ErrExternalTool, "ytdlp", "spawn", s.binary, result.Err)
	case StateTimedOut:
		result.Err = services.Wrap(services.ErrTimeout, "ytdlp", "wait",
			fmt.Sprintf("exceeded %s", s.timeout), result.Err)
	case StateExited:
		result.Err = services.Wrap(services.ErrExternalTool, "ytdlp", "wait",
			fmt.Sprintf("exit status %d", result.ExitCode), result.Err)
	}

	log.Debug("downloader finished",
		logging.String("state", string(result.State)),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result
}
