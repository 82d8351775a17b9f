package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"dripl/internal/api"
)

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || !tokenMatches(strings.TrimPrefix(auth, "Bearer "), token) {
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isAdmin reports whether r carries the admin token. An empty configured
// token disables admin access entirely.
func isAdmin(r *http.Request, adminToken string) bool {
	if adminToken == "" {
		return false
	}
	return tokenMatches(r.Header.Get(api.AdminHeader), adminToken)
}

func tokenMatches(presented, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
