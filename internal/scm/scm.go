// Package scm defines the source-control collaborator used by the exporter.
package scm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrProjectNotFound is returned by GetProject for unknown paths.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUnauthorized is returned by Authenticate when credentials are rejected.
	ErrUnauthorized = errors.New("source control credentials rejected")
)

// Project is a resolved source-control project.
type Project struct {
	ID            string
	Name          string
	Path          string
	RepositoryURL string
}

// Tag is one tag as returned by the source-control API. Everything besides
// Name is opaque to classification.
type Tag struct {
	Name      string
	Commit    string
	Message   string
	Protected bool
	CreatedAt *time.Time
}

// Client is implemented by every supported source-control backend.
type Client interface {
	// Authenticate checks that the configured credentials are accepted.
	Authenticate(ctx context.Context) error
	// GetProject resolves a project path. Unknown paths yield ErrProjectNotFound.
	GetProject(ctx context.Context, path string) (*Project, error)
	// ListTags returns all tags of the project in the order the API returns them.
	ListTags(ctx context.Context, project *Project) ([]Tag, error)
}

// Healthy runs Authenticate and logs the outcome.
func Healthy(ctx context.Context, client Client, logger *slog.Logger) bool {
	if err := client.Authenticate(ctx); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			logger.Error("check source control API credentials", "error", err)
		} else {
			logger.Error("check hostname or network connection", "error", err)
		}
		logger.Error("source control connection is not healthy")
		return false
	}

	logger.Info("source control connection is healthy")
	return true
}

// TagNames returns the names of tags in order.
func TagNames(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}
