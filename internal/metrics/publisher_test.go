package metrics_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
	"github.com/dreschagin/git-tag-exporter/internal/scm"
	"github.com/dreschagin/git-tag-exporter/internal/tags"
)

func newPublisher(t *testing.T) (*metrics.Publisher, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return metrics.NewPublisher(registry, logger), registry
}

func selected(project, tag string) tags.Snapshot {
	return tags.Snapshot{
		ProjectName: project,
		Repository:  "git@example.com:group/" + project + ".git",
		SemverTags:  []scm.Tag{{Name: tag}},
		Source:      project,
	}
}

func absent(project string) tags.Snapshot {
	return tags.Snapshot{
		ProjectName: project,
		Repository:  "git@example.com:group/" + project + ".git",
		Source:      project,
	}
}

func failed(source string) tags.Snapshot {
	return tags.Snapshot{
		ProjectName: "GitlabApiError",
		Repository:  "GitlabApiError",
		SemverTags:  []scm.Tag{},
		Source:      source,
		Err:         errors.New("boom"),
	}
}

func TestPublisher_EndToEnd(t *testing.T) {
	p, registry := newPublisher(t)

	stats := p.Publish(
		[]tags.Snapshot{selected("app", "1.1.0-rc.1")},
		[]tags.Snapshot{selected("app", "1.0.0")},
	)
	gt.Equal(t, stats, metrics.PublishStats{RC: 1, Rel: 1})

	expected := `
# HELP gitlab_project_rc_tag_info The latest release-candidate tag from project.
# TYPE gitlab_project_rc_tag_info gauge
gitlab_project_rc_tag_info{project_name="app",repository="git@example.com:group/app.git",tag_version="1.1.0-rc.1"} 1
# HELP gitlab_project_rel_tag_info The latest release tag from project.
# TYPE gitlab_project_rel_tag_info gauge
gitlab_project_rel_tag_info{project_name="app",repository="git@example.com:group/app.git",tag_version="1.0.0"} 1
`
	gt.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		metrics.RCTagFamilyName, metrics.RelTagFamilyName))
}

func TestPublisher_SkipsAbsentSelections(t *testing.T) {
	p, registry := newPublisher(t)

	stats := p.Publish(
		[]tags.Snapshot{selected("app", "1.1.0-rc.1"), absent("lib")},
		[]tags.Snapshot{absent("app"), absent("lib")},
	)
	gt.Equal(t, stats.RC, 1)
	gt.Equal(t, stats.Rel, 0)

	count, err := testutil.GatherAndCount(registry, metrics.RCTagFamilyName)
	gt.NoError(t, err)
	gt.Equal(t, count, 1)

	count, err = testutil.GatherAndCount(registry, metrics.RelTagFamilyName)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
}

func TestPublisher_Idempotent(t *testing.T) {
	p, registry := newPublisher(t)
	rc := []tags.Snapshot{selected("app", "1.1.0-rc.1"), selected("lib", "0.2.0-rc.3")}
	rel := []tags.Snapshot{selected("app", "1.0.0"), absent("lib")}

	for range 3 {
		p.Publish(rc, rel)

		count, err := testutil.GatherAndCount(registry, metrics.RCTagFamilyName)
		gt.NoError(t, err)
		gt.Equal(t, count, 2)

		count, err = testutil.GatherAndCount(registry, metrics.RelTagFamilyName)
		gt.NoError(t, err)
		gt.Equal(t, count, 1)
	}
}

func TestPublisher_ClearsStaleRecords(t *testing.T) {
	p, registry := newPublisher(t)

	p.Publish([]tags.Snapshot{selected("app", "1.1.0-rc.1")}, nil)
	p.Publish([]tags.Snapshot{selected("app", "1.2.0-rc.1")}, nil)

	expected := `
# HELP gitlab_project_rc_tag_info The latest release-candidate tag from project.
# TYPE gitlab_project_rc_tag_info gauge
gitlab_project_rc_tag_info{project_name="app",repository="git@example.com:group/app.git",tag_version="1.2.0-rc.1"} 1
`
	gt.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), metrics.RCTagFamilyName))

	p.Publish([]tags.Snapshot{absent("app")}, nil)
	count, err := testutil.GatherAndCount(registry, metrics.RCTagFamilyName)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
}

func TestPublisher_FetchErrors(t *testing.T) {
	p, registry := newPublisher(t)

	stats := p.Publish(
		[]tags.Snapshot{selected("app", "1.1.0-rc.1"), failed("Lib")},
		[]tags.Snapshot{selected("app", "1.0.0"), failed("Lib")},
	)
	gt.Equal(t, stats, metrics.PublishStats{RC: 1, Rel: 1, Errors: 1})

	expected := `
# HELP gitlab_project_fetch_error_info Projects whose tag fetch failed in the last poll cycle.
# TYPE gitlab_project_fetch_error_info gauge
gitlab_project_fetch_error_info{project_name="GitlabApiError",repository="GitlabApiError",source_project="Lib"} 1
`
	gt.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), metrics.FetchErrorFamilyName))

	// recovered on the next cycle
	stats = p.Publish([]tags.Snapshot{selected("app", "1.1.0-rc.1")}, nil)
	gt.Equal(t, stats.Errors, 0)
	count, err := testutil.GatherAndCount(registry, metrics.FetchErrorFamilyName)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
}

type recordingFamily struct {
	ops []string
	n   int
}

func (f *recordingFamily) Clear() {
	f.ops = append(f.ops, "clear")
	f.n = 0
}

func (f *recordingFamily) Publish(labelValues ...string) {
	f.ops = append(f.ops, "publish:"+strings.Join(labelValues, ","))
	f.n++
}

func (f *recordingFamily) Len() int { return f.n }

func TestPublisher_ClearsBeforePublishing(t *testing.T) {
	rc, rel, errs := &recordingFamily{}, &recordingFamily{}, &recordingFamily{}
	p := metrics.NewPublisherWithFamilies(rc, rel, errs, nil)

	p.Publish([]tags.Snapshot{selected("app", "1.1.0-rc.1")}, nil)
	gt.A(t, rc.ops).Equal([]string{
		"publish:app,git@example.com:group/app.git,1.1.0-rc.1",
	})

	p.Publish([]tags.Snapshot{selected("app", "1.1.0-rc.2")}, nil)
	gt.A(t, rc.ops).Equal([]string{
		"publish:app,git@example.com:group/app.git,1.1.0-rc.1",
		"clear",
		"publish:app,git@example.com:group/app.git,1.1.0-rc.2",
	})
	gt.A(t, rel.ops).Length(0)
}
