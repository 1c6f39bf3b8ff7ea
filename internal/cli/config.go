// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/agrichat/internal/config"
	"github.com/urfave/cli/v2"
)

func configCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect or create the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, e.cfg.String())
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "print the configuration file path",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, e.configPath)
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "write a configuration file with default values",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: func(c *cli.Context) error {
					path := e.configPath
					if path == "" {
						return cli.Exit("no configuration path available", 1)
					}
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return cli.Exit(path+" already exists (use --force to overwrite)", 1)
					}
					if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
						return err
					}
					if filepath.Ext(path) == ".json" {
						if err := config.SaveJSON(config.Default(), path); err != nil {
							return err
						}
					} else if err := config.SaveTOML(config.Default(), path); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "wrote "+path)
					return nil
				},
			},
		},
	}
}
