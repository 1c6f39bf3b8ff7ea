// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/jeranaias/agrichat/internal/chat"
)

// revealPrinter writes each newly revealed part of a reply to w, so the
// answer appears at the reveal cadence in a plain terminal.
type revealPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	turn    int
	printed int
}

func newRevealPrinter(w io.Writer) *revealPrinter {
	return &revealPrinter{w: w}
}

// Listen is a chat.Listener.
func (p *revealPrinter) Listen(ev chat.Event) {
	if ev.Kind == chat.EventReveal {
		p.write(ev.Turn, ev.Text)
	}
}

func (p *revealPrinter) write(turn int, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if turn != p.turn {
		p.turn = turn
		p.printed = 0
	}
	if len(text) > p.printed {
		fmt.Fprint(p.w, text[p.printed:])
		p.printed = len(text)
	}
}

// endLine terminates the reply line if anything was printed for turn.
func (p *revealPrinter) endLine(turn int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.turn == turn && p.printed > 0 {
		fmt.Fprintln(p.w)
	}
}
