// Package github implements scm.Client on top of the GitHub REST API.
// Project paths are "owner/repo".
package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dreschagin/git-tag-exporter/internal/scm"
)

const defaultPerPage = 100

type Client struct {
	api     *gh.Client
	perPage int
}

// NewClient creates a GitHub client. An empty baseURL targets api.github.com;
// GitHub Enterprise installations pass their ".../api/v3/" URL.
func NewClient(baseURL, token string) (*Client, error) {
	api := gh.NewClient(nil)
	if token != "" {
		api = api.WithAuthToken(token)
	}

	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", baseURL))
		}
		api.BaseURL = u
	}

	return &Client{
		api:     api,
		perPage: defaultPerPage,
	}, nil
}

func (c *Client) Authenticate(ctx context.Context) error {
	_, resp, err := c.api.Users.Get(ctx, "")
	if err != nil {
		if isStatus(resp, http.StatusUnauthorized) || isStatus(resp, http.StatusForbidden) {
			return goerr.Wrap(scm.ErrUnauthorized, "GitHub rejected the API token", goerr.V("cause", err.Error()))
		}
		return goerr.Wrap(err, "failed to reach GitHub")
	}
	return nil
}

func (c *Client) GetProject(ctx context.Context, path string) (*scm.Project, error) {
	owner, name, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	repo, resp, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isStatus(resp, http.StatusNotFound) {
			return nil, goerr.Wrap(scm.ErrProjectNotFound, "GitHub repository not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to get GitHub repository", goerr.V("path", path))
	}

	return &scm.Project{
		ID:            repo.GetFullName(),
		Name:          repo.GetName(),
		Path:          repo.GetFullName(),
		RepositoryURL: repo.GetSSHURL(),
	}, nil
}

func (c *Client) ListTags(ctx context.Context, project *scm.Project) ([]scm.Tag, error) {
	owner, name, err := splitPath(project.ID)
	if err != nil {
		return nil, err
	}

	opt := &gh.ListOptions{PerPage: c.perPage}

	var out []scm.Tag
	for {
		page, resp, err := c.api.Repositories.ListTags(ctx, owner, name, opt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list GitHub tags",
				goerr.V("project", project.Path),
				goerr.V("page", opt.Page),
			)
		}

		for _, t := range page {
			out = append(out, scm.Tag{
				Name:   t.GetName(),
				Commit: t.GetCommit().GetSHA(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return out, nil
}

func splitPath(path string) (string, string, error) {
	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", goerr.Wrap(scm.ErrProjectNotFound, "GitHub project path must be owner/repo", goerr.V("path", path))
	}
	return owner, name, nil
}

func isStatus(resp *gh.Response, code int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == code
}
