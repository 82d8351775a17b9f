package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"dripl/internal/api"
	"dripl/internal/config"
	"dripl/internal/credentials"
	"dripl/internal/daemonctl"
	"dripl/internal/deps"
	"dripl/internal/logging"
	"dripl/internal/retrieval"
	"dripl/internal/routes"
)

// Fetcher runs validated retrieval requests.
type Fetcher interface {
	Fetch(ctx context.Context, req retrieval.Request) (retrieval.Outcome, error)
}

// Daemon owns the API server and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	fetcher     Fetcher
	credentials *credentials.Store
	routes      *routes.Pool

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, fetcher Fetcher, creds *credentials.Store, pool *routes.Pool) (*Daemon, error) {
	if cfg == nil || logger == nil || fetcher == nil {
		return nil, errors.New("daemon requires config, logger, and fetcher")
	}

	lockPath := daemonctl.PathsFor(cfg).LockFile
	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		fetcher:     fetcher,
		credentials: creds,
		routes:      pool,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dripl daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("dripl daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("dripl daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Handler exposes the API router without a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.router
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
	}
}

// Health gathers the read-only introspection payload. Credential files are
// re-inspected but the retrieval pool is never modified.
func (d *Daemon) Health() api.HealthResponse {
	routeList, cursor := api.FromSnapshot(d.routes.Snapshot())
	status := d.Status()
	return api.HealthResponse{
		Daemon: &api.DaemonStatus{
			Running:    status.Running,
			PID:        status.PID,
			APIAddress: status.APIAddress,
			LockFile:   status.LockFilePath,
		},
		Credentials:   api.FromBundles(d.credentials.Health()),
		Routes:        routeList,
		Cursor:        cursor,
		Dependencies:  api.FromDependencies(deps.CheckDownloader(d.cfg.Downloader.Binary, d.cfg.Downloader.FFmpegLocation)),
		MaxConcurrent: d.cfg.Retrieval.MaxConcurrent,
		FailurePolicy: d.cfg.Retrieval.FailurePolicy,
	}
}
