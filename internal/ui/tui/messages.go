// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/config"
	"github.com/jeranaias/agrichat/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// sessionEventMsg wraps an event published by the chat session.
type sessionEventMsg struct {
	event chat.Event
}

// submittedMsg reports an accepted submission. Progress arrives as
// session events, so the model does not act on it.
type submittedMsg struct {
	turn *chat.Turn
}

// submitFailedMsg reports a submission the session refused.
type submitFailedMsg struct {
	input string
	err   error
}

// conversationMsg reports the result of a new, load or delete operation.
type conversationMsg struct {
	action string
	conv   *model.Conversation
	err    error
}

// historyMsg carries an explicitly requested history refresh.
type historyMsg struct {
	list []model.Summary
	err  error
}

// ConfigReloadedMsg tells the model that the config file changed.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// RELAY
// =============================================================================

// Relay forwards session events into a running program. Events published
// before Attach or after Detach are dropped.
type Relay struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewRelay creates an unattached relay.
func NewRelay() *Relay {
	return &Relay{}
}

// Attach starts forwarding to p.
func (r *Relay) Attach(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

// Detach stops forwarding.
func (r *Relay) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = nil
}

// Listen is a chat.Listener.
func (r *Relay) Listen(ev chat.Event) {
	r.Send(sessionEventMsg{event: ev})
}

// Send forwards any message to the attached program.
func (r *Relay) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}
