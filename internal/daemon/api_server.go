package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dripl/internal/api"
	"dripl/internal/config"
	"dripl/internal/logging"
	"dripl/internal/retrieval"
)

const maxFetchBody = 64 << 10

type apiServer struct {
	bind       string
	adminToken string
	logger     *slog.Logger
	daemon     *Daemon
	router     chi.Router

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:       strings.TrimSpace(cfg.Paths.APIBind),
		adminToken: strings.TrimSpace(cfg.Security.AdminToken),
		logger:     logging.NewComponentLogger(logger, "api-server"),
		daemon:     d,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogMiddleware(srv.logger))
	r.Use(recoverMiddleware(srv.logger))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method_not_allowed"})
	})

	r.Get("/healthz", srv.handleLiveness)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))
		r.Post("/fetch", srv.handleFetch)
		r.Get("/health", srv.handleHealth)
	})
	srv.router = r
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Fetches run for as long as their attempts do; each attempt has its own timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.Health())
}

func (s *apiServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	var body api.FetchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFetchBody))
	if err := decoder.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, api.FromResponse(retrieval.BadRequest(), err.Error()))
		return
	}

	req, err := retrieval.NewRequest(body.Input())
	if err != nil {
		status, resp := api.FromError(err)
		writeJSON(w, status, resp)
		return
	}

	outcome, err := s.daemon.fetcher.Fetch(r.Context(), req)
	if err != nil {
		status, resp := api.FromError(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(s.logger, "fetch failed before any attempt", "fetch_aborted",
				logging.String(logging.FieldCorrelationID, req.ID),
				logging.Error(err),
			)
		}
		resp.RequestID = req.ID
		writeJSON(w, status, resp)
		return
	}

	status, resp := api.FromOutcome(outcome, isAdmin(r, s.adminToken))
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
