package daemon

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"dripl/internal/api"
	"dripl/internal/logging"
	"dripl/internal/retrieval"
)

// recoverMiddleware turns handler panics into a server_crash response.
func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.ErrorWithContext(logger, "handler panic", "api_panic",
					logging.Any("panic", rec),
					logging.String("path", r.URL.Path),
					logging.String("request_id", middleware.GetReqID(r.Context())),
					logging.String("stack", string(debug.Stack())),
					logging.String(logging.FieldErrorHint, "report this crash with the stack trace"),
				)
				resp := retrieval.ServerCrash()
				writeJSON(w, resp.Status, api.FromResponse(resp, ""))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogMiddleware logs one line per request at debug level.
func requestLogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("api request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("elapsed", time.Since(start)),
				logging.String("remote", r.RemoteAddr),
				logging.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
