package main

import (
	"context"
	"os"

	"github.com/dreschagin/git-tag-exporter/internal/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
