package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	handler := Middleware("secret-token", m)(okHandler())

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "valid token", token: "Bearer secret-token", wantStatus: http.StatusOK},
		{name: "missing token", token: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", token: "Bearer wrong", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", token: "Basic secret-token", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", token: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			gt.Equal(t, rr.Code, tt.wantStatus)
		})
	}

	gt.Equal(t, testutil.ToFloat64(m.AuthFailures), 4.0)
}

func TestMiddleware_Disabled(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	handler := Middleware("", m)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/run", nil))

	gt.Equal(t, rr.Code, http.StatusOK)
	gt.Equal(t, testutil.ToFloat64(m.AuthFailures), 0.0)
}
