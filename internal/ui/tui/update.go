// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/reveal"
)

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.ready = true
		m.layout()
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		return m.handleSessionEvent(msg.event)

	case submittedMsg:
		return m, nil

	case submitFailedMsg:
		m.input.SetValue(msg.input)
		if errors.Is(msg.err, chat.ErrTurnInFlight) {
			m.setStatus("Wait for the current answer, or press esc to stop it", false)
		} else {
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil

	case conversationMsg:
		if msg.err != nil {
			m.setStatus("Could not "+msg.action+" conversation: "+msg.err.Error(), true)
			return m, nil
		}
		m.conv = msg.conv
		m.sidebarFocus = false
		m.input.Focus()
		switch msg.action {
		case "new":
			m.setStatus("Started a new conversation", false)
		case "delete":
			m.setStatus("Conversation deleted", false)
		default:
			m.setStatus("", false)
		}
		m.refreshViewport(true)
		return m, nil

	case historyMsg:
		m.setHistory(msg.list)
		if msg.err != nil {
			m.setStatus("History unavailable, showing saved conversations", true)
		}
		return m, nil

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.sess.SetRevealOptions(msg.Config.RevealOptions())
			m.setStatus("Configuration reloaded", false)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.busy {
			m.setStatus("Stopping answer...", false)
			return m, m.stop()
		}
		return m, tea.Quit
	}

	if m.sidebarFocus {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.History):
		if m.sidebarVisible() {
			m.sidebarFocus = true
			m.input.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		if m.busy {
			m.setStatus("Stopping answer...", false)
			return m, m.stop()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newConversation()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshHistory()

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if m.busy {
			m.setStatus("Wait for the current answer, or press esc to stop it", false)
			return m, nil
		}
		m.input.Reset()
		m.setStatus("", false)
		return m, m.submit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.History), key.Matches(msg, m.keys.Stop):
		m.sidebarFocus = false
		m.input.Focus()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.history)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if id, ok := m.selectedID(); ok {
			m.setStatus("Loading conversation...", false)
			return m, m.loadConversation(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.selectedID(); ok {
			return m, m.deleteConversation(id)
		}
		return m, nil
	}
	return m, nil
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m Model) handleSessionEvent(ev chat.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case chat.EventTurnStarted:
		m.busy = true
		m.conv = m.sess.Conversation()
		m.refreshViewport(true)
		return m, m.spinner.Tick

	case chat.EventReveal, chat.EventConversationID:
		m.conv = m.sess.Conversation()
		m.refreshViewport(false)

	case chat.EventTurnFinished:
		m.busy = false
		m.conv = m.sess.Conversation()
		switch ev.Result.Outcome {
		case reveal.OutcomeFailed:
			if in := m.sess.TakeInput(); in != "" && strings.TrimSpace(m.input.Value()) == "" {
				m.input.SetValue(in)
			}
			m.setStatus("The answer failed. Your question is back in the input box.", true)
		case reveal.OutcomeCancelled:
			m.setStatus("Answer stopped", false)
		default:
			m.setStatus("", false)
		}
		m.refreshViewport(false)

	case chat.EventHistory:
		m.setHistory(ev.History)

	case chat.EventConversation:
		m.conv = m.sess.Conversation()
		m.refreshViewport(true)
	}
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) setHistory(list []model.Summary) {
	m.history = list
	if m.selected >= len(list) {
		m.selected = len(list) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) selectedID() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.history) {
		return "", false
	}
	return m.history[m.selected].ID, true
}

func (m Model) sidebarVisible() bool {
	return m.width >= minSidebarWidth
}

// layout sizes the viewport and input for the current window.
func (m *Model) layout() {
	chatWidth := m.width
	if m.sidebarVisible() {
		chatWidth -= sidebarWidth
	}
	m.input.SetWidth(max(chatWidth-4, 10))

	// header + typing line + input box (with border) + status bar
	reserved := 1 + 1 + (inputHeight + 2) + 1
	m.viewport.Width = max(chatWidth, 10)
	m.viewport.Height = max(m.height-reserved, 3)
}

// refreshViewport re-renders the transcript. It follows the bottom when
// force is set or the user has not scrolled up.
func (m *Model) refreshViewport(force bool) {
	follow := force || m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}
