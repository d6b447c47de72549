package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
)

// Middleware validates the bearer token of the routes it wraps. An empty
// token disables the check.
func Middleware(bearerToken string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if bearerToken == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				m.AuthFailures.Inc()
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(bearerToken)) != 1 {
				m.AuthFailures.Inc()
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
