// Package poller drives the fetch, classify and publish cycle.
package poller

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dreschagin/git-tag-exporter/internal/fetcher"
	"github.com/dreschagin/git-tag-exporter/internal/metrics"
	"github.com/dreschagin/git-tag-exporter/internal/tags"
)

// Config holds the cycle parameters.
type Config struct {
	Interval   time.Duration
	RCPattern  *tags.Pattern
	RelPattern *tags.Pattern
	Policy     tags.Policy
}

// Runner executes poll cycles one at a time. Scheduled and manual cycles
// share a lock so they never overlap.
type Runner struct {
	fetcher   *fetcher.Fetcher
	publisher *metrics.Publisher
	metrics   *metrics.Metrics
	refs      []fetcher.ProjectRef
	cfg       Config
	log       *slog.Logger

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	lastSummary *CycleSummary
}

func NewRunner(
	f *fetcher.Fetcher,
	publisher *metrics.Publisher,
	m *metrics.Metrics,
	refs []fetcher.ProjectRef,
	cfg Config,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	m.ManagedProjects.Set(float64(len(refs)))

	return &Runner{
		fetcher:   f,
		publisher: publisher,
		metrics:   m,
		refs:      refs,
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}
}

// Start runs a cycle immediately, then waits Interval after each finished
// cycle before starting the next. It returns nil when ctx is done and an
// error if a cycle panics.
func (r *Runner) Start(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := r.runScheduled(ctx); err != nil {
				return err
			}
			timer.Reset(r.cfg.Interval)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Runner) runScheduled(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = goerr.New("poll cycle panicked",
				goerr.V("recover", rec),
				goerr.V("stack", string(debug.Stack())),
			)
			r.log.Error("poll task stopped", "error", err)
		}
	}()

	// RunOnce already stores error state and logs context.
	_, _ = r.RunOnce(ctx, TriggerSchedule)
	return nil
}

// RunOnce executes one full cycle: fetch, classify per category, publish.
func (r *Runner) RunOnce(ctx context.Context, trigger Trigger) (*CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	// Callers may give up while queued behind another cycle.
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "poll cycle skipped", goerr.V("trigger", trigger))
	}

	startedAt := time.Now()
	r.log.Info("poll cycle started", "trigger", trigger, "projects", len(r.refs))

	snapshots := r.fetcher.Snapshots(ctx, r.refs)
	if err := ctx.Err(); err != nil {
		wrappedErr := goerr.Wrap(err, "poll cycle aborted", goerr.V("trigger", trigger))
		r.updateFailure(time.Now(), wrappedErr)
		r.log.Warn("poll cycle aborted, keeping previous records", "error", wrappedErr)
		return nil, wrappedErr
	}

	rc := tags.SelectAll(snapshots, r.cfg.RCPattern, r.cfg.Policy)
	rel := tags.SelectAll(snapshots, r.cfg.RelPattern, r.cfg.Policy)
	stats := r.publisher.Publish(rc, rel)

	runAt := time.Now()
	summary := buildSummary(trigger, runAt, runAt.Sub(startedAt), snapshots, rc, rel, stats)

	r.metrics.PollCycles.WithLabelValues(string(trigger)).Inc()
	r.metrics.FetchFailures.Add(float64(summary.FetchFailures))
	r.metrics.CycleDurationSec.Observe(summary.Duration.Seconds())
	r.metrics.LastCycleTimestamp.Set(float64(runAt.Unix()))

	r.updateSuccess(runAt, summary)

	if summary.FetchFailures > 0 {
		r.log.Warn("poll cycle completed with fetch failures",
			"failures", summary.FetchFailures,
			"projects", summary.Projects,
		)
	}
	r.log.Info("poll cycle completed",
		"trigger", trigger,
		"projects", summary.Projects,
		"rc_records", stats.RC,
		"rel_records", stats.Rel,
		"duration", summary.Duration.String(),
	)

	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.cfg.Interval,
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
	}

	if r.lastSummary != nil {
		copiedSummary := *r.lastSummary
		copiedSummary.Selections = append([]Selection(nil), r.lastSummary.Selections...)
		snapshot.LastSummary = &copiedSummary
	}

	return snapshot
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = err.Error()
}

func (r *Runner) updateSuccess(runAt time.Time, summary *CycleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = ""
	r.lastSummary = summary
}

func buildSummary(trigger Trigger, runAt time.Time, took time.Duration, snapshots, rc, rel []tags.Snapshot, stats metrics.PublishStats) *CycleSummary {
	summary := &CycleSummary{
		Trigger:     trigger,
		GeneratedAt: runAt,
		Duration:    took,
		Projects:    len(snapshots),
		Published:   stats,
		Selections:  make([]Selection, len(snapshots)),
	}

	for i, s := range snapshots {
		sel := Selection{
			ProjectName: s.ProjectName,
			Repository:  s.Repository,
			Source:      s.Source,
			Tags:        s.Fetched,
			SemverTags:  len(s.SemverTags),
		}
		if s.Failed() {
			summary.FetchFailures++
			sel.Error = s.Err.Error()
		}
		sel.RC, _ = rc[i].Selected()
		sel.Rel, _ = rel[i].Selected()
		summary.Selections[i] = sel
	}

	return summary
}
