// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/util"
	"github.com/urfave/cli/v2"
)

const historyTitleWidth = 48

func historyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list recent conversations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "number of conversations to list (1-50)",
			},
		},
		Action: func(c *cli.Context) error {
			if n := c.Int("limit"); n > 0 {
				if n > 50 {
					return cli.Exit("--limit must be between 1 and 50", 2)
				}
				e.cfg.Backend.HistoryLimit = n
			}
			sess, err := e.openSession(c.Context, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			list, err := sess.RefreshHistory(c.Context)
			if list == nil && err != nil {
				return err
			}
			if err != nil {
				fmt.Fprintln(c.App.ErrWriter, warningStyle.Render("backend unavailable, showing cached conversations"))
			}
			printHistory(c.App.Writer, list, sess.ConversationID())
			return nil
		},
	}
}

func showCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print a conversation",
		ArgsUsage: "CHAT_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: agrichat show CHAT_ID", 2)
			}
			id := c.Args().First()

			store, err := e.openStore()
			if err != nil {
				return err
			}
			deviceID, err := store.DeviceID(c.Context)
			if err != nil {
				return err
			}

			msgs, err := e.client().ChatByID(c.Context, id, deviceID)
			if err == nil {
				printTranscript(c.App.Writer, model.FromBackendMessages(id, msgs))
				return nil
			}
			conv, cacheErr := store.LoadConversation(c.Context, id)
			if cacheErr != nil {
				if errors.Is(cacheErr, storage.ErrNotFound) {
					return cli.Exit(fmt.Sprintf("conversation %s: %v", id, err), 1)
				}
				return cacheErr
			}
			fmt.Fprintln(c.App.ErrWriter, warningStyle.Render("backend unavailable, showing cached copy"))
			printTranscript(c.App.Writer, conv)
			return nil
		},
	}
}

func deleteCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a conversation",
		ArgsUsage: "CHAT_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: agrichat delete CHAT_ID", 2)
			}
			sess, err := e.openSession(c.Context, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			id := c.Args().First()
			if err := sess.DeleteConversation(c.Context, id); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "deleted "+id)
			return nil
		},
	}
}

func newCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "start a new conversation",
		Action: func(c *cli.Context) error {
			sess, err := e.openSession(c.Context, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			conv, err := sess.NewConversation(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, conv.ID)
			return nil
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// printHistory prints one row per conversation and marks the current one.
func printHistory(out io.Writer, list []model.Summary, currentID string) {
	if len(list) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No conversations yet."))
		return
	}
	for _, s := range list {
		marker := " "
		if s.ID == currentID {
			marker = "*"
		}
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%s %s  %s  %s  %s\n",
			marker,
			s.ID,
			util.PadWidth(updated, 16),
			util.PadWidth(strconv.Itoa(s.MessageCount)+" msgs", 8),
			util.TruncateWidth(s.Title, historyTitleWidth),
		)
	}
}

// printTranscript prints every message of conv.
func printTranscript(out io.Writer, conv *model.Conversation) {
	if conv.IsEmpty() {
		fmt.Fprintln(out, dimStyle.Render("(empty conversation)"))
		return
	}
	for _, m := range conv.Messages {
		switch {
		case m.IsError:
			fmt.Fprintln(out, errorStyle.Render(m.Content))
		case m.Role == model.RoleUser:
			fmt.Fprintln(out, promptStyle.Render(m.Role.DisplayName()+":")+" "+m.Content)
		default:
			fmt.Fprintln(out, assistantStyle.Render(m.Role.DisplayName()+":")+" "+m.Content)
		}
		if m.Interrupted {
			fmt.Fprintln(out, warningStyle.Render("[stopped]"))
		}
	}
}
