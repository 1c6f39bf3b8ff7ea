// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/agrichat/internal/chat"
)

// Run shows the chat screen until the user quits or ctx ends. The relay
// must be the one passed to the session as its Listener.
func Run(ctx context.Context, sess *chat.Session, relay *Relay, opts Options) error {
	m := New(ctx, sess, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	relay.Attach(p)
	defer relay.Detach()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	sess.Cancel()
	return nil
}
