package cli

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dreschagin/git-tag-exporter/internal/fanout"
	"github.com/dreschagin/git-tag-exporter/internal/fetcher"
	"github.com/dreschagin/git-tag-exporter/internal/poller"
	"github.com/dreschagin/git-tag-exporter/internal/scm"
	"github.com/dreschagin/git-tag-exporter/internal/scm/github"
	"github.com/dreschagin/git-tag-exporter/internal/scm/gitlab"
	"github.com/dreschagin/git-tag-exporter/internal/tags"
	"github.com/dreschagin/git-tag-exporter/pkg/config"
)

const startupTimeout = 30 * time.Second

// ErrUnhealthy is returned when the startup credential check fails.
var ErrUnhealthy = errors.New("source control connection is not healthy")

func newClient(main config.MainConfig) (scm.Client, error) {
	switch main.Provider {
	case config.ProviderGitHub:
		return github.NewClient(main.GithubAPIURL, main.Token)
	case config.ProviderGitLab:
		return gitlab.NewClient(main.GitlabURL, main.Token)
	default:
		return nil, goerr.New("unknown provider", goerr.V("provider", main.Provider))
	}
}

// connect checks credentials and resolves the configured projects.
func connect(ctx context.Context, e env) (*fetcher.Fetcher, []fetcher.ProjectRef, error) {
	client, err := newClient(e.cfg.Main)
	if err != nil {
		return nil, nil, err
	}

	authCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if !scm.Healthy(authCtx, client, e.logger) {
		return nil, nil, goerr.Wrap(ErrUnhealthy, "startup check failed",
			goerr.V("provider", e.cfg.Main.Provider))
	}

	f := fetcher.New(client, fanout.Options{
		Workers: e.cfg.Main.Workers,
		Timeout: e.cfg.Main.FetchTimeout(),
	}, e.logger)

	if len(e.cfg.Projects) == 0 {
		e.logger.Warn("gitProjects are not set in the config, nothing to export")
	}

	refs := f.Resolve(ctx, e.cfg.Projects)
	e.logger.Info("projects resolved", "configured", len(e.cfg.Projects), "resolved", len(refs))

	return f, refs, nil
}

func pollerConfig(main config.MainConfig) (poller.Config, error) {
	rc, err := tags.CompilePattern(main.RCTagPattern)
	if err != nil {
		return poller.Config{}, err
	}
	rel, err := tags.CompilePattern(main.RelTagPattern)
	if err != nil {
		return poller.Config{}, err
	}
	policy, err := tags.ParsePolicy(main.Selection)
	if err != nil {
		return poller.Config{}, err
	}

	return poller.Config{
		Interval:   main.PollInterval,
		RCPattern:  rc,
		RelPattern: rel,
		Policy:     policy,
	}, nil
}
