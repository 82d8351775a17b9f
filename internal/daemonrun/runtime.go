package daemonrun

import (
	"fmt"
	"log/slog"

	"dripl/internal/config"
	"dripl/internal/credentials"
	"dripl/internal/logging"
	"dripl/internal/retrieval"
	"dripl/internal/routes"
	"dripl/internal/ytdlp"
)

// Runtime bundles the retrieval stack built from configuration.
type Runtime struct {
	Credentials  *credentials.Store
	Routes       *routes.Pool
	Supervisor   *ytdlp.Supervisor
	Orchestrator *retrieval.Orchestrator
}

// Option adjusts runtime construction.
type Option func(*buildOptions)

type buildOptions struct {
	supervisorOpts []ytdlp.Option
}

// WithSupervisorOptions forwards extra options to the downloader supervisor.
func WithSupervisorOptions(opts ...ytdlp.Option) Option {
	return func(b *buildOptions) {
		b.supervisorOpts = append(b.supervisorOpts, opts...)
	}
}

// Build enumerates credentials, parses routes, and wires the supervisor and
// orchestrator. It is shared by the daemon and the one-shot fetch command.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	var build buildOptions
	for _, opt := range opts {
		opt(&build)
	}

	store := credentials.Load(cfg.Credentials.CookiePaths, logger)
	pool, err := routes.New(cfg.Routes.Proxies)
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}

	supervisorOpts := append([]ytdlp.Option{
		ytdlp.WithTimeout(cfg.DownloadTimeout()),
		ytdlp.WithGrace(cfg.KillGrace()),
		ytdlp.WithLogger(logger),
	}, build.supervisorOpts...)
	supervisor, err := ytdlp.New(cfg.Downloader.Binary, ytdlp.Settings{
		UserAgent:      cfg.Downloader.UserAgent,
		Retries:        cfg.Downloader.Retries,
		SocketTimeout:  cfg.Downloader.SocketTimeout,
		PlayerClient:   cfg.Downloader.PlayerClient,
		FFmpegLocation: cfg.Downloader.FFmpegLocation,
	}, supervisorOpts...)
	if err != nil {
		return nil, fmt.Errorf("create supervisor: %w", err)
	}

	orchestrator, err := retrieval.New(supervisor, pool, store, cfg.Paths.OutputDir,
		retrieval.WithLogger(logger),
		retrieval.WithPolicy(retrieval.Policy(cfg.Retrieval.FailurePolicy)),
		retrieval.WithMaxConcurrent(cfg.Retrieval.MaxConcurrent),
	)
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	logging.NewComponentLogger(logger, "runtime").Info("retrieval runtime ready", logging.Args(
		logging.String("binary", supervisor.Binary()),
		logging.Duration("attempt_timeout", supervisor.Timeout()),
		logging.Int("credential_bundles", len(store.Paths())),
		logging.Int("routes", pool.Len()),
		logging.String("failure_policy", string(orchestrator.Policy())),
	)...)

	return &Runtime{
		Credentials:  store,
		Routes:       pool,
		Supervisor:   supervisor,
		Orchestrator: orchestrator,
	}, nil
}
