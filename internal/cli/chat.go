// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/reveal"
	"github.com/jeranaias/agrichat/internal/util"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"
)

func chatCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "chat line by line without the full-screen interface",
		Action: func(c *cli.Context) error {
			return runChat(c, e)
		},
	}
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineInput provides line editing and persistent input history.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput() *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &lineInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// readInput prompts with text pre-filled, e.g. a question restored after a
// failed turn.
func (in *lineInput) readInput(prompt, text string) (string, error) {
	var (
		input string
		err   error
	)
	if text != "" {
		input, err = in.line.PromptWithSuggestion(prompt, text, -1)
	} else {
		input, err = in.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with owner-only permissions.
func (in *lineInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

func runChat(c *cli.Context, e *env) error {
	out := c.App.Writer
	ctx := c.Context

	printer := newRevealPrinter(out)
	sess, err := e.openSession(ctx, printer.Listen)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := newLineInput()
	defer in.close()

	// Ctrl+C while an answer is being revealed stops that answer only.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		for range sigCh {
			if sess.Busy() {
				sess.Cancel()
			}
		}
	}()

	fmt.Fprintln(out, titleStyle.Render("Farm Support Assistant")+
		dimStyle.Render("  device "+util.ShortID(sess.DeviceID(), 8)+"  /help for commands"))

	for {
		input, err := in.readInput(promptStyle.Render("you> "), sess.TakeInput())
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				return err
			}
			fmt.Fprintln(out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(ctx, out, sess, input)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("[Error]")+" "+err.Error())
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		askOnce(ctx, out, sess, printer, input)
	}
}

// askOnce runs one turn and prints how it ended.
func askOnce(ctx context.Context, out io.Writer, sess *chat.Session, printer *revealPrinter, input string) {
	turn, err := sess.Submit(ctx, input)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("[Error]")+" "+err.Error())
		return
	}
	<-turn.Done()
	printer.endLine(turn.Number())

	switch res := turn.Result(); res.Outcome {
	case reveal.OutcomeFailed:
		fmt.Fprintln(out, errorStyle.Render(lastErrorText(sess.Conversation())))
	case reveal.OutcomeCancelled:
		fmt.Fprintln(out, warningStyle.Render("[stopped]"))
	}
}

// handleSlashCommand runs a slash command. It reports false when the REPL
// should exit.
func handleSlashCommand(ctx context.Context, out io.Writer, sess *chat.Session, line string) (bool, error) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp(out)
	case "/quit", "/q", "/exit":
		return false, nil
	case "/new", "/n":
		conv, err := sess.NewConversation(ctx)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(out, dimStyle.Render("[new conversation "+util.ShortID(conv.ID, 8)+"]"))
	case "/history":
		list, err := sess.RefreshHistory(ctx)
		if list == nil && err != nil {
			return true, err
		}
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render("[offline] showing cached conversations"))
		}
		printHistory(out, list, sess.ConversationID())
	case "/load", "/open":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /load CHAT_ID")
		}
		conv, err := sess.LoadConversation(ctx, args[0])
		if err != nil {
			return true, err
		}
		printTranscript(out, conv)
	case "/delete", "/rm":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /delete CHAT_ID")
		}
		if err := sess.DeleteConversation(ctx, args[0]); err != nil {
			return true, err
		}
		fmt.Fprintln(out, dimStyle.Render("[deleted "+args[0]+"]"))
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func printChatHelp(out io.Writer) {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a new conversation"},
		{"/history", "List recent conversations"},
		{"/load ID", "Open a conversation"},
		{"/delete ID", "Delete a conversation"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(out)
	for _, c := range commands {
		fmt.Fprintf(out, "  %s  %s\n", promptStyle.Render(fmt.Sprintf("%-12s", c.cmd)), dimStyle.Render(c.desc))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render("Ctrl+C stops the current answer, Ctrl+D exits"))
}
