package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestWithRequestID(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.True(t, seen != "")
	gt.Equal(t, rr.Header().Get(requestIDHeader), seen)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	gt.Equal(t, seen, "abc-123")
	gt.Equal(t, rr.Header().Get(requestIDHeader), "abc-123")
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := WithRequestID(WithLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	out := buf.String()
	gt.String(t, out).Contains("exporter request")
	gt.String(t, out).Contains("path=/readyz")
	gt.String(t, out).Contains("status=418")
}
