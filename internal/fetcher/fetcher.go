// Package fetcher resolves configured projects and pulls their tag lists
// through the fan-out pool.
package fetcher

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dreschagin/git-tag-exporter/internal/fanout"
	"github.com/dreschagin/git-tag-exporter/internal/scm"
	"github.com/dreschagin/git-tag-exporter/internal/tags"
	"github.com/dreschagin/git-tag-exporter/pkg/config"
)

// APIErrorName replaces the project name and repository of a project whose
// tag fetch failed.
const APIErrorName = "GitlabApiError"

// ProjectRef is a configured project resolved against the source-control API.
type ProjectRef struct {
	Name    string
	Path    string
	Project *scm.Project
}

// ProjectTags is the tag list of one project wrapped with its metadata.
type ProjectTags struct {
	ProjectName string
	Repository  string
	Source      string
	Tags        []scm.Tag
	Err         error
}

// Failed reports whether this is an error record.
func (p ProjectTags) Failed() bool {
	return p.Err != nil
}

// Snapshot classifies the fetched tags. Error records yield a snapshot with
// no tags that carries the error.
func (p ProjectTags) Snapshot() tags.Snapshot {
	if p.Failed() {
		return tags.Snapshot{
			ProjectName: p.ProjectName,
			Repository:  p.Repository,
			SemverTags:  []scm.Tag{},
			Source:      p.Source,
			Err:         p.Err,
		}
	}
	return tags.NewSnapshot(p.ProjectName, p.Repository, p.Source, p.Tags)
}

// Fetcher talks to the source-control API on a bounded worker pool.
type Fetcher struct {
	client scm.Client
	opts   fanout.Options
	logger *slog.Logger
}

// New creates a Fetcher. opts bounds concurrency and per-project timeout.
func New(client scm.Client, opts fanout.Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &Fetcher{client: client, opts: opts, logger: logger}
}

// Resolve looks up every configured project. Projects that cannot be
// resolved are logged and dropped; the order of the rest is preserved.
func (f *Fetcher) Resolve(ctx context.Context, projects []config.Project) []ProjectRef {
	results := fanout.Do(ctx, projects, func(ctx context.Context, p config.Project) (*scm.Project, error) {
		return f.client.GetProject(ctx, p.Path)
	}, f.opts)

	refs := make([]ProjectRef, 0, len(projects))
	for i, res := range results {
		p := projects[i]
		if !res.OK() {
			f.logger.Error("project dropped",
				"name", p.Name,
				"path", p.Path,
				"error", res.Err,
			)
			continue
		}
		f.logger.Debug("project resolved", "name", p.Name, "path", p.Path, "id", res.Value.ID)
		refs = append(refs, ProjectRef{Name: p.Name, Path: p.Path, Project: res.Value})
	}

	return refs
}

// Tags returns the bare tag list of every project in input order.
func (f *Fetcher) Tags(ctx context.Context, refs []ProjectRef) []fanout.Result[[]scm.Tag] {
	return fanout.Do(ctx, refs, func(ctx context.Context, ref ProjectRef) ([]scm.Tag, error) {
		if ref.Project == nil {
			return nil, goerr.New("project is not resolved", goerr.V("path", ref.Path))
		}
		return f.client.ListTags(ctx, ref.Project)
	}, f.opts)
}

// TagsWithMeta returns the tag list of every project together with its name
// and repository URL. A failed fetch becomes an error record named
// APIErrorName so it stays visible downstream.
func (f *Fetcher) TagsWithMeta(ctx context.Context, refs []ProjectRef) []ProjectTags {
	results := f.Tags(ctx, refs)

	out := make([]ProjectTags, len(refs))
	for i, res := range results {
		ref := refs[i]
		if !res.OK() {
			f.logger.Error("tag fetch failed",
				"project", ref.Name,
				"path", ref.Path,
				"error", res.Err,
			)
			out[i] = ProjectTags{
				ProjectName: APIErrorName,
				Repository:  APIErrorName,
				Tags:        []scm.Tag{},
				Source:      ref.Name,
				Err:         res.Err,
			}
			continue
		}

		out[i] = ProjectTags{
			ProjectName: ref.Project.Name,
			Repository:  ref.Project.RepositoryURL,
			Source:      ref.Name,
			Tags:        res.Value,
		}
	}

	return out
}

// Snapshots fetches every project and classifies its tags.
func (f *Fetcher) Snapshots(ctx context.Context, refs []ProjectRef) []tags.Snapshot {
	fetched := f.TagsWithMeta(ctx, refs)
	out := make([]tags.Snapshot, len(fetched))
	for i, p := range fetched {
		out[i] = p.Snapshot()
		f.logger.Debug("tags classified",
			"project", p.ProjectName,
			"fetched", len(p.Tags),
			"semver", len(out[i].SemverTags),
		)
	}
	return out
}
