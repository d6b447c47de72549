package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
	"github.com/dreschagin/git-tag-exporter/internal/poller"
	"github.com/dreschagin/git-tag-exporter/internal/server"
)

func cmdServe(e *env) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Poll tags and serve metrics (default)",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, *e)
		},
	}
}

func serve(ctx context.Context, e env) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollCfg, err := pollerConfig(e.cfg.Main)
	if err != nil {
		return err
	}

	f, refs, err := connect(ctx, e)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	publisher := metrics.NewPublisher(registry, e.logger)
	runner := poller.NewRunner(f, publisher, m, refs, pollCfg, e.logger)

	srv := server.New(runner, registry, m,
		server.WithAddr(e.cfg.Main.Addr()),
		server.WithRunToken(e.cfg.Main.RunToken),
		server.WithRateLimit(e.cfg.Main.RateLimitRPS, e.cfg.Main.RateLimitBurst),
		server.WithLogger(e.logger),
	)

	e.logger.Info("starting git-tag-exporter",
		slog.String("addr", e.cfg.Main.Addr()),
		slog.String("provider", e.cfg.Main.Provider),
		slog.String("interval", pollCfg.Interval.String()),
		slog.Int("projects", len(refs)),
	)

	// Either task ending before shutdown cancels the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := runner.Start(gctx); err != nil {
			return err
		}
		if ctx.Err() == nil && gctx.Err() == nil {
			return goerr.New("poll task stopped unexpectedly")
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return err
		}
		if ctx.Err() == nil && gctx.Err() == nil {
			return goerr.New("exporter server stopped unexpectedly")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Info("git-tag-exporter stopped")
	return nil
}
