// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// fallbackWidth is used when the output is not a terminal.
	fallbackWidth = 80

	// minWrapWidth keeps rendered answers readable in very narrow windows.
	minWrapWidth = 40
)

// terminalFd returns the descriptor behind v when it is a terminal.
func terminalFd(v any) (int, bool) {
	f, ok := v.(*os.File)
	if !ok || f == nil {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// stdinIsTerminal reports whether questions can be typed interactively.
func stdinIsTerminal() bool {
	_, ok := terminalFd(os.Stdin)
	return ok
}

// stdoutIsTerminal reports whether stdout can host the full-screen chat.
func stdoutIsTerminal() bool {
	_, ok := terminalFd(os.Stdout)
	return ok
}

// outputWidth returns the column count of w, or fallbackWidth when w is
// not a terminal.
func outputWidth(w io.Writer) int {
	fd, ok := terminalFd(w)
	if !ok {
		return fallbackWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return max(width, minWrapWidth)
}

var (
	profile     termenv.Profile
	profileOnce sync.Once
)

// colorProfile picks the lipgloss profile for line output. NO_COLOR wins
// over FORCE_COLOR; otherwise colors follow whether stdout is a terminal.
func colorProfile() termenv.Profile {
	profileOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			profile = termenv.Ascii
		case os.Getenv("FORCE_COLOR") != "" || stdoutIsTerminal():
			profile = termenv.ColorProfile()
		default:
			profile = termenv.Ascii
		}
	})
	return profile
}
