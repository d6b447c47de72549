// Package cli wires configuration, the source-control client, the poll
// runner and the HTTP server into the git-tag-exporter commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dreschagin/git-tag-exporter/pkg/config"
)

// Version is set at build time.
var Version = "dev"

// env carries what Before prepared for the commands.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Run runs the CLI application. Without a subcommand it serves metrics.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		loggerCfg config.Logger
		pathCfg   config.Path
		e         env
	)

	flags := append(loggerCfg.Flags(), pathCfg.Flags()...)

	app := &cli.Command{
		Name:    "git-tag-exporter",
		Usage:   "Export the latest release-candidate and release tags of git projects as Prometheus metrics",
		Version: Version,
		Flags:   flags,
		Writer:  stdout,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(pathCfg.File)
			if err != nil {
				return nil, err
			}

			loggerCfg.Merge(cfg.Main)
			logger, err := loggerCfg.Configure(stdout)
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			logger.Debug("config loaded", "path", pathCfg.File, "main", cfg.Main)

			e = env{cfg: cfg, logger: logger}
			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, e)
		},
		Commands: []*cli.Command{
			cmdServe(&e),
			cmdCheck(&e, stdout),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logger := e.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		return goerr.Wrap(err, "git-tag-exporter failed")
	}

	return nil
}
