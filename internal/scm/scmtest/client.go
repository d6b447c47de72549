// Package scmtest provides an in-memory scm.Client for tests.
package scmtest

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dreschagin/git-tag-exporter/internal/scm"
)

// Client serves projects and tags from memory. It is safe for concurrent use.
type Client struct {
	mu sync.Mutex

	AuthErr  error
	projects map[string]*scm.Project
	tags     map[string][]scm.Tag
	tagErrs  map[string]error
	calls    map[string]int
}

// New returns an empty Client.
func New() *Client {
	return &Client{
		projects: make(map[string]*scm.Project),
		tags:     make(map[string][]scm.Tag),
		tagErrs:  make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddProject registers a project whose repository URL is derived from path.
func (c *Client) AddProject(name, path string, tagNames ...string) *scm.Project {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &scm.Project{
		ID:            path,
		Name:          name,
		Path:          path,
		RepositoryURL: "git@example.com:" + path + ".git",
	}
	c.projects[path] = p
	c.tags[path] = namedTags(tagNames)
	return p
}

// SetTags replaces the tags of a registered project.
func (c *Client) SetTags(path string, tagNames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[path] = namedTags(tagNames)
}

// FailTags makes ListTags for path return err. A nil err clears the failure.
func (c *Client) FailTags(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.tagErrs, path)
		return
	}
	c.tagErrs[path] = err
}

// ListCalls returns how many times ListTags was called for path.
func (c *Client) ListCalls(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

func (c *Client) Authenticate(_ context.Context) error {
	return c.AuthErr
}

func (c *Client) GetProject(_ context.Context, path string) (*scm.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.projects[path]
	if !ok {
		return nil, goerr.Wrap(scm.ErrProjectNotFound, "unknown project", goerr.V("path", path))
	}
	cp := *p
	return &cp, nil
}

func (c *Client) ListTags(ctx context.Context, project *scm.Project) ([]scm.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[project.Path]++
	if err := c.tagErrs[project.Path]; err != nil {
		return nil, err
	}
	return append([]scm.Tag(nil), c.tags[project.Path]...), nil
}

func namedTags(names []string) []scm.Tag {
	out := make([]scm.Tag, len(names))
	for i, n := range names {
		out[i] = scm.Tag{Name: n, Commit: "sha-" + n}
	}
	return out
}
