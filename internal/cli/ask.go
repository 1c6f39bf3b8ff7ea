// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/reveal"
	"github.com/urfave/cli/v2"
)

func askCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "ask one question and print the answer",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "new",
				Usage: "start a new conversation first",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "wait for the whole answer and render it as Markdown",
			},
		},
		Action: func(c *cli.Context) error {
			return runAsk(c, e)
		},
	}
}

func runAsk(c *cli.Context, e *env) error {
	out := c.App.Writer
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" && !stdinIsTerminal() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		return cli.Exit("usage: agrichat ask QUERY...", 2)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	render := c.Bool("render")
	printer := newRevealPrinter(out)
	var listener chat.Listener
	if !render {
		listener = printer.Listen
	}

	sess, err := e.openSession(ctx, listener)
	if err != nil {
		return err
	}
	defer sess.Close()

	if c.Bool("new") {
		if _, err := sess.NewConversation(ctx); err != nil {
			return err
		}
	}

	turn, err := sess.Submit(ctx, query)
	if err != nil {
		return err
	}
	<-turn.Done()
	res := turn.Result()

	if render {
		if res.Text != "" {
			fmt.Fprintln(out, renderMarkdown(out, res.Text))
		}
	} else {
		printer.endLine(turn.Number())
	}

	switch res.Outcome {
	case reveal.OutcomeFailed:
		return cli.Exit(errorStyle.Render(lastErrorText(sess.Conversation())), 1)
	case reveal.OutcomeCancelled:
		return cli.Exit(warningStyle.Render("[stopped]"), 130)
	}
	return nil
}

// lastErrorText returns the error entry that ends conv.
func lastErrorText(conv *model.Conversation) string {
	if last := conv.LastMessage(); last != nil && last.IsError {
		return last.Content
	}
	return chat.TransportErrorText
}

// renderMarkdown renders markdown for terminals and returns it unchanged
// for pipes and files.
func renderMarkdown(w io.Writer, content string) string {
	if _, ok := terminalFd(w); !ok {
		return content
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(outputWidth(w)-2),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
