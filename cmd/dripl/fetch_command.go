package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dripl/internal/api"
	"dripl/internal/config"
	"dripl/internal/daemonrun"
	"dripl/internal/logging"
	"dripl/internal/retrieval"
)

type fetchFunc func(context.Context, api.FetchRequest) (api.FetchResponse, error)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		format     string
		proxyIndex int
		proxyURL   string
		rotate     bool
		raw        bool
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <url> [url...]",
		Short: "Retrieve media for one or more URLs",
		Long: "Retrieve media for one or more URLs and print the JSON result.\n\n" +
			"Requests run in-process against the configured credentials and routes,\n" +
			"or against a running daemon with --remote.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			requests := make([]api.FetchRequest, len(args))
			for i, target := range args {
				req := api.FetchRequest{URL: target, Format: format, ProxyURL: proxyURL}
				if cmd.Flags().Changed("proxy-index") {
					index := proxyIndex
					req.ProxyIndex = &index
				}
				if rotate {
					req.Rotate = retrieval.RotateNext
				}
				requests[i] = req
			}

			var fetch fetchFunc
			if remote {
				fetch, err = remoteFetcher(ctx, cfg)
			} else {
				fetch, err = localFetcher(cfg, raw)
			}
			if err != nil {
				return err
			}

			results, err := fetchAll(cmd.Context(), requests, cfg.Retrieval.MaxConcurrent, fetch)
			if err != nil {
				return err
			}

			if len(results) == 1 {
				err = writeJSON(cmd, results[0])
			} else {
				err = writeJSON(cmd, results)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if !res.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fetches failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: video (mp4) or audio (mp3)")
	cmd.Flags().IntVar(&proxyIndex, "proxy-index", 0, "Pin the request to the configured proxy at this index")
	cmd.Flags().StringVar(&proxyURL, "proxy-url", "", "Use this proxy URL instead of the configured pool")
	cmd.Flags().BoolVar(&rotate, "rotate", false, "Advance the shared proxy cursor before selecting a route")
	cmd.Flags().BoolVar(&raw, "raw", false, "Include raw downloader output in failure results")
	cmd.Flags().BoolVar(&remote, "remote", false, "Send the requests to a running daemon")
	return cmd
}

// fetchAll runs requests with at most limit in flight; results keep input order.
func fetchAll(ctx context.Context, requests []api.FetchRequest, limit int, fetch fetchFunc) ([]api.FetchResponse, error) {
	results := make([]api.FetchResponse, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range requests {
		g.Go(func() error {
			res, err := fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", req.URL, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func localFetcher(cfg *config.Config, includeRaw bool) (fetchFunc, error) {
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	rt, err := daemonrun.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, body api.FetchRequest) (api.FetchResponse, error) {
		return fetchLocal(ctx, rt.Orchestrator, logger, body, includeRaw), nil
	}, nil
}

func fetchLocal(ctx context.Context, orchestrator *retrieval.Orchestrator, logger *slog.Logger, body api.FetchRequest, includeRaw bool) api.FetchResponse {
	req, err := retrieval.NewRequest(body.Input())
	if err != nil {
		_, resp := api.FromError(err)
		return resp
	}
	outcome, err := orchestrator.Fetch(ctx, req)
	if err != nil {
		logging.WarnWithContext(logger, "fetch aborted", "fetch_aborted",
			logging.String("url", req.URL),
			logging.Error(err),
		)
		_, resp := api.FromError(err)
		resp.RequestID = req.ID
		return resp
	}
	_, resp := api.FromOutcome(outcome, includeRaw)
	return resp
}

func remoteFetcher(ctx *commandContext, cfg *config.Config) (fetchFunc, error) {
	address := ctx.apiAddress(cfg)
	client, err := ctx.apiClient()
	if err != nil {
		return nil, err
	}
	return func(reqCtx context.Context, body api.FetchRequest) (api.FetchResponse, error) {
		_, resp, err := client.Fetch(reqCtx, body)
		if err != nil {
			return api.FetchResponse{}, wrapDaemonError(err, address)
		}
		return resp, nil
	}, nil
}
