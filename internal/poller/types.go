package poller

import (
	"time"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
)

// Trigger tells what started a poll cycle.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Selection is the outcome of one project in one cycle. Empty RC or Rel
// means no tag qualified.
type Selection struct {
	ProjectName string `json:"project_name"`
	Repository  string `json:"repository"`
	Source      string `json:"source_project"`
	RC          string `json:"rc,omitempty"`
	Rel         string `json:"rel,omitempty"`
	Tags        int    `json:"tags"`
	SemverTags  int    `json:"semver_tags"`
	Error       string `json:"error,omitempty"`
}

type CycleSummary struct {
	Trigger       Trigger              `json:"trigger"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Duration      time.Duration        `json:"duration_ns"`
	Projects      int                  `json:"projects"`
	FetchFailures int                  `json:"fetch_failures"`
	Published     metrics.PublishStats `json:"published"`
	Selections    []Selection          `json:"selections"`
}

type Snapshot struct {
	StartedAt   time.Time     `json:"started_at"`
	Interval    time.Duration `json:"interval_ns"`
	LastRunAt   time.Time     `json:"last_run_at"`
	LastError   string        `json:"last_error,omitempty"`
	LastSummary *CycleSummary `json:"last_summary,omitempty"`
}
