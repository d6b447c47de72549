// Package gitlab implements scm.Client on top of the GitLab REST API.
package gitlab

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/dreschagin/git-tag-exporter/internal/scm"
)

const defaultPerPage = 100

type Client struct {
	api     *gl.Client
	perPage int
}

// NewClient creates a GitLab client for baseURL authenticated with a private token.
func NewClient(baseURL, token string) (*Client, error) {
	api, err := gl.NewClient(token, gl.WithBaseURL(baseURL))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitLab client", goerr.V("url", baseURL))
	}

	return &Client{
		api:     api,
		perPage: defaultPerPage,
	}, nil
}

func (c *Client) Authenticate(ctx context.Context) error {
	_, resp, err := c.api.Users.CurrentUser(gl.WithContext(ctx))
	if err != nil {
		if isStatus(resp, http.StatusUnauthorized) || isStatus(resp, http.StatusForbidden) {
			return goerr.Wrap(scm.ErrUnauthorized, "GitLab rejected the API token", goerr.V("cause", err.Error()))
		}
		return goerr.Wrap(err, "failed to reach GitLab")
	}
	return nil
}

func (c *Client) GetProject(ctx context.Context, path string) (*scm.Project, error) {
	p, resp, err := c.api.Projects.GetProject(path, nil, gl.WithContext(ctx))
	if err != nil {
		if isStatus(resp, http.StatusNotFound) {
			return nil, goerr.Wrap(scm.ErrProjectNotFound, "GitLab project not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to get GitLab project", goerr.V("path", path))
	}

	return &scm.Project{
		ID:            strconv.Itoa(p.ID),
		Name:          p.Name,
		Path:          p.PathWithNamespace,
		RepositoryURL: p.SSHURLToRepo,
	}, nil
}

// ListTags walks every page of the project's tags. Order is GitLab's default
// (most recently updated first).
func (c *Client) ListTags(ctx context.Context, project *scm.Project) ([]scm.Tag, error) {
	opt := &gl.ListTagsOptions{
		ListOptions: gl.ListOptions{PerPage: c.perPage, Page: 1},
	}

	var out []scm.Tag
	for {
		page, resp, err := c.api.Tags.ListTags(project.ID, opt, gl.WithContext(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list GitLab tags",
				goerr.V("project", project.Path),
				goerr.V("page", opt.Page),
			)
		}

		for _, t := range page {
			out = append(out, convertTag(t))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return out, nil
}

func convertTag(t *gl.Tag) scm.Tag {
	tag := scm.Tag{
		Name:      t.Name,
		Message:   t.Message,
		Protected: t.Protected,
	}
	if t.Commit != nil {
		tag.Commit = t.Commit.ID
		tag.CreatedAt = t.Commit.CreatedAt
	}
	return tag
}

func isStatus(resp *gl.Response, code int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == code
}
