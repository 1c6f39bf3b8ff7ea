// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jeranaias/agrichat/internal/chat"
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/ui/styles"
)

// Layout constants.
const (
	sidebarWidth    = 30
	minSidebarWidth = 80
	inputHeight     = 3
	maxInputLength  = 2000
)

// Options configures the chat screen.
type Options struct {
	// Markdown enables glamour rendering of finished replies.
	Markdown bool
	// Theme is "dark", "light" or "auto".
	Theme string
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx      context.Context
	sess     *chat.Session
	theme    *styles.Theme
	keys     KeyMap
	markdown *markdownRenderer

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	conv     *model.Conversation
	history  []model.Summary
	deviceID string

	selected     int
	sidebarFocus bool
	busy         bool
	status       string
	statusErr    bool

	width  int
	height int
	ready  bool
}

// New creates the chat screen for sess.
func New(ctx context.Context, sess *chat.Session, opts Options) Model {
	theme := styles.NewTheme(opts.Theme)

	ta := textarea.New()
	ta.Placeholder = "Ask about crops, soil, pests or irrigation..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = maxInputLength
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	sp.Style = theme.Typing

	m := Model{
		ctx:      ctx,
		sess:     sess,
		theme:    theme,
		keys:     DefaultKeyMap(),
		markdown: newMarkdownRenderer(opts.Markdown, theme.GlamourStyle()),
		input:    ta,
		viewport: vp,
		spinner:  sp,
		conv:     sess.Conversation(),
		history:  sess.History(),
		deviceID: sess.DeviceID(),
		busy:     sess.Busy(),
	}
	if in := sess.TakeInput(); in != "" {
		m.input.SetValue(in)
	}
	return m
}

// Init starts the cursor blink and the first history fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.refreshHistory())
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) submit(text string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		turn, err := sess.TrySubmit(ctx, text)
		if err != nil {
			return submitFailedMsg{input: text, err: err}
		}
		return submittedMsg{turn: turn}
	}
}

func (m Model) stop() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		sess.Cancel()
		return nil
	}
}

func (m Model) newConversation() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		conv, err := sess.NewConversation(ctx)
		return conversationMsg{action: "new", conv: conv, err: err}
	}
}

func (m Model) loadConversation(id string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		conv, err := sess.LoadConversation(ctx, id)
		return conversationMsg{action: "load", conv: conv, err: err}
	}
}

func (m Model) deleteConversation(id string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		err := sess.DeleteConversation(ctx, id)
		return conversationMsg{action: "delete", conv: sess.Conversation(), err: err}
	}
}

func (m Model) refreshHistory() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		list, err := sess.RefreshHistory(ctx)
		return historyMsg{list: list, err: err}
	}
}
