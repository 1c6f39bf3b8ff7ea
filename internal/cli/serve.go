// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/jeranaias/agrichat/internal/devserver"
	"github.com/urfave/cli/v2"
)

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a local development backend with canned farming answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: devserver.DefaultAddr,
				Usage: "listen address",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Value: devserver.DefaultChunkSize,
				Usage: "runes per streamed content event",
			},
			&cli.DurationFlag{
				Name:  "chunk-delay",
				Value: devserver.DefaultChunkDelay,
				Usage: "pause between content events (0 sends everything at once)",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext(c.Context)
			defer cancel()

			delay := c.Duration("chunk-delay")
			if delay == 0 {
				delay = -1
			}
			srv := devserver.New(devserver.Options{
				Addr:       c.String("addr"),
				ChunkSize:  c.Int("chunk-size"),
				ChunkDelay: delay,
				Responder:  devserver.Agronomist{},
				Logger:     e.logger,
			})

			fmt.Fprintln(c.App.Writer, titleStyle.Render("agrichat dev backend")+
				dimStyle.Render(fmt.Sprintf("  http://%s/api  (Ctrl+C to stop)", srv.Addr())))
			return srv.ListenAndServe(ctx)
		},
	}
}
