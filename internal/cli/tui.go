// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/ui/tui"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func tuiCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "open the full-screen chat (default)",
		Action: func(c *cli.Context) error {
			return runTUI(c, e)
		},
	}
}

func runTUI(c *cli.Context, e *env) error {
	if c.NArg() > 0 {
		return cli.Exit("unknown command "+c.Args().First()+" (see agrichat --help)", 2)
	}
	if !stdinIsTerminal() || !stdoutIsTerminal() {
		return cli.Exit("the full-screen chat needs a terminal; use 'agrichat chat' or 'agrichat ask'", 2)
	}

	relay := tui.NewRelay()
	sess, err := e.openSession(c.Context, relay.Listen)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Reveal settings follow edits to the config file while the chat is open.
	if _, err := os.Stat(e.configPath); err == nil {
		w, err := config.Watch(e.configPath, e.logger, func(cfg *config.Config) {
			relay.Send(tui.ConfigReloadedMsg{Config: cfg})
		})
		if err != nil {
			e.logger.Warn("config watch unavailable", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	return tui.Run(c.Context, sess, relay, tui.Options{
		Markdown: e.cfg.UI.Markdown,
		Theme:    e.cfg.UI.Theme,
	})
}
