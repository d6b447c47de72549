package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
)

func TestMiddleware_DropsOverBurst(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	limiter := New(0.001, 2)
	handler := limiter.Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	gt.A(t, codes).Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests})
	gt.Equal(t, testutil.ToFloat64(m.RateLimitDropped), 1.0)
}

func TestAllow_PerClient(t *testing.T) {
	limiter := New(0.001, 1)
	limiter.global = rate.NewLimiter(rate.Inf, 0)

	gt.True(t, limiter.allow("10.0.0.1"))
	gt.False(t, limiter.allow("10.0.0.1"))
	gt.True(t, limiter.allow("10.0.0.2"))
}

func TestCleanupLocked(t *testing.T) {
	limiter := New(10, 10)
	limiter.perIP["old"] = &clientLimiter{lastSeen: time.Now().Add(-time.Hour)}
	limiter.perIP["new"] = &clientLimiter{lastSeen: time.Now()}

	limiter.cleanupLocked(time.Now().Add(-10 * time.Minute))

	_, oldKept := limiter.perIP["old"]
	_, newKept := limiter.perIP["new"]
	gt.False(t, oldKept)
	gt.True(t, newKept)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	gt.Equal(t, clientIP(req), "192.0.2.7")

	req.RemoteAddr = "192.0.2.8"
	gt.Equal(t, clientIP(req), "192.0.2.8")
}
