package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/git-tag-exporter/internal/tags"
)

const (
	RCTagFamilyName      = "gitlab_project_rc_tag_info"
	RelTagFamilyName     = "gitlab_project_rel_tag_info"
	FetchErrorFamilyName = "gitlab_project_fetch_error_info"
)

var tagLabels = []string{"project_name", "repository", "tag_version"}

// Publisher turns selected snapshots into label records. Every Publish call
// replaces what the previous call published.
type Publisher struct {
	rc     Family
	rel    Family
	errors Family
	logger *slog.Logger
}

// NewPublisher creates the tag families and registers them with registry.
func NewPublisher(registry *prometheus.Registry, logger *slog.Logger) *Publisher {
	rc := NewInfoFamily(RCTagFamilyName, "The latest release-candidate tag from project.", tagLabels...)
	rel := NewInfoFamily(RelTagFamilyName, "The latest release tag from project.", tagLabels...)
	errs := NewInfoFamily(FetchErrorFamilyName, "Projects whose tag fetch failed in the last poll cycle.",
		"project_name", "repository", "source_project")

	registry.MustRegister(rc, rel, errs)

	return NewPublisherWithFamilies(rc, rel, errs, logger)
}

// NewPublisherWithFamilies wires a Publisher to caller-owned families.
func NewPublisherWithFamilies(rc, rel, errs Family, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{rc: rc, rel: rel, errors: errs, logger: logger}
}

// PublishStats counts the records written by one Publish call.
type PublishStats struct {
	RC     int `json:"rc"`
	Rel    int `json:"rel"`
	Errors int `json:"errors"`
}

// Publish replaces the RC and release families with the selections in rc and
// rel, and the error family with the failed snapshots of either.
func (p *Publisher) Publish(rc, rel []tags.Snapshot) PublishStats {
	return PublishStats{
		RC:     p.publishCategory("rc", p.rc, rc),
		Rel:    p.publishCategory("rel", p.rel, rel),
		Errors: p.publishErrors(rc, rel),
	}
}

func (p *Publisher) publishCategory(category string, family Family, snapshots []tags.Snapshot) int {
	if n := family.Len(); n > 0 {
		p.logger.Debug("clearing tag records", "category", category, "records", n)
		family.Clear()
	}

	for _, s := range snapshots {
		tag, ok := s.Selected()
		if !ok {
			continue
		}
		p.logger.Debug("publishing tag record",
			"category", category,
			"project_name", s.ProjectName,
			"repository", s.Repository,
			"tag_version", tag,
		)
		family.Publish(s.ProjectName, s.Repository, tag)
	}

	return family.Len()
}

func (p *Publisher) publishErrors(groups ...[]tags.Snapshot) int {
	if p.errors.Len() > 0 {
		p.errors.Clear()
	}

	for _, snapshots := range groups {
		for _, s := range snapshots {
			if !s.Failed() {
				continue
			}
			p.errors.Publish(s.ProjectName, s.Repository, s.Source)
		}
	}

	return p.errors.Len()
}
