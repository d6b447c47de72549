package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/summary", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/api/v1/summary", "/api/v1/summary", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	gt.Equal(t, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/summary", "GET", "200")), 2.0)
	gt.Equal(t, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("other", "GET", "404")), 1.0)
}
