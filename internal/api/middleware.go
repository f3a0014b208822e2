package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

func validBearer(r *http.Request, token string) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	provided := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1
}

// BearerAuth returns middleware that validates the Authorization: Bearer <token> header.
// Uses crypto/subtle.ConstantTimeCompare to prevent timing attacks.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validBearer(r, token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UsageGate lets callers holding the bearer token through and allows
// everyone else limit requests per client IP in each usage window.
// Counter failures let the request through.
func UsageGate(token string, counter UsageCounter, limit int, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validBearer(r, token) || counter == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller := clientIP(r)
			n, err := counter.IncrUsage(r.Context(), caller)
			if err != nil {
				log.WarnContext(r.Context(), "usage counter failed, allowing request", "caller", caller, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(limit) {
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error": "free plan limit reached, register for an API token to keep planning",
					"limit": limit,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
