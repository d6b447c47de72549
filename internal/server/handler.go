package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dreschagin/git-tag-exporter/internal/poller"
)

type handler struct {
	runner     Runner
	runTimeout time.Duration
	logger     *slog.Logger
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.runner.Snapshot()

	lastRun := ""
	if !snapshot.LastRunAt.IsZero() {
		lastRun = snapshot.LastRunAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":     "ok",
		"uptime":     time.Since(snapshot.StartedAt).Round(time.Second).String(),
		"last_run":   lastRun,
		"last_error": snapshot.LastError,
	})
}

func (h *handler) readyz(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.runner.Snapshot()
	if snapshot.LastRunAt.IsZero() {
		http.Error(w, "not ready: no completed poll cycle yet", http.StatusServiceUnavailable)
		return
	}
	if time.Since(snapshot.LastRunAt) > snapshot.Interval*3 {
		http.Error(w, "not ready: stale poll cycle", http.StatusServiceUnavailable)
		return
	}
	if snapshot.LastError != "" {
		http.Error(w, "not ready: last poll cycle failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.runner.Snapshot())
}

func (h *handler) runNow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	summary, err := h.runner.RunOnce(ctx, poller.TriggerManual)
	if err != nil {
		writeJSON(w, h.logger, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
