package config

import "github.com/urfave/cli/v3"

// Path holds the location of the config file.
type Path struct {
	File string
}

// Flags returns CLI flags for locating the config file
func (c *Path) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config-path",
			Aliases:     []string{"c"},
			Usage:       "Path to the config file",
			Value:       DefaultConfigPath,
			Destination: &c.File,
			Sources:     cli.EnvVars("TAG_EXPORTER_CONFIG_PATH"),
		},
	}
}
