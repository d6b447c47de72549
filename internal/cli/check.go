package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/dreschagin/git-tag-exporter/internal/metrics"
	"github.com/dreschagin/git-tag-exporter/internal/poller"
)

func cmdCheck(e *env, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "check",
		Aliases: []string{"c"},
		Usage:   "Run one poll cycle and print the selected tags",
		Action: func(ctx context.Context, c *cli.Command) error {
			return check(ctx, *e, stdout)
		},
	}
}

func check(ctx context.Context, e env, w io.Writer) error {
	pollCfg, err := pollerConfig(e.cfg.Main)
	if err != nil {
		return err
	}

	f, refs, err := connect(ctx, e)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	runner := poller.NewRunner(f, metrics.NewPublisher(registry, e.logger), metrics.New(registry), refs, pollCfg, e.logger)
	summary, err := runner.RunOnce(ctx, poller.TriggerManual)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, bold("PROJECT")+"\t"+bold("TAGS")+"\t"+bold("SEMVER")+"\t"+bold("RC")+"\t"+bold("RELEASE"))
	for _, sel := range summary.Selections {
		if sel.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", sel.Source, red("error: "+sel.Error))
			continue
		}

		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			sel.Source, sel.Tags, sel.SemverTags, orNone(sel.RC, green, faint), orNone(sel.Rel, green, faint))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d projects, %d rc, %d release, %d fetch failures\n",
		summary.Projects, summary.Published.RC, summary.Published.Rel, summary.FetchFailures)
	return nil
}

func orNone(tag string, some, none func(...any) string) string {
	if tag == "" {
		return none("none")
	}
	return some(tag)
}
