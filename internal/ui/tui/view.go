// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.typingLine(),
		m.theme.InputContainer.Render(m.input.View()),
	)

	body := chat
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), chat)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER AND STATUS
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("AgriChat Support")
	subtitle := ""
	if m.conv != nil && !m.conv.IsEmpty() {
		subtitle = m.theme.HeaderSubtitle.Render("  " + util.TruncateWidth(m.conv.Title, 40))
	}
	return m.theme.Header.Width(m.width).Render(title + subtitle)
}

func (m Model) typingLine() string {
	if !m.busy {
		return ""
	}
	return m.theme.Typing.Render(" Assistant is typing " + m.spinner.View())
}

func (m Model) renderStatusBar() string {
	if m.status != "" {
		text := util.TruncateWidth(m.status, max(m.width-2, 10))
		if m.statusErr {
			return m.theme.StatusBar.Render(m.theme.StatusError.Render(text))
		}
		return m.theme.StatusBar.Render(text)
	}

	bindings := m.keys.ChatHelp()
	if m.sidebarFocus {
		bindings = m.keys.HistoryHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, renderBinding(m, b))
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

func renderBinding(m Model, b key.Binding) string {
	h := b.Help()
	return m.theme.ShortcutKey.Render(h.Key) + " " + m.theme.ShortcutDesc.Render(h.Desc)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	inner := sidebarWidth - 3
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("History"))
	b.WriteString("\n")

	if len(m.history) == 0 {
		b.WriteString(m.theme.EmptyHint.Render("No conversations yet"))
	}
	currentID := ""
	if m.conv != nil {
		currentID = m.conv.ID
	}
	for i, h := range m.history {
		marker := "  "
		if h.ID == currentID {
			marker = m.theme.SidebarCurrent.Render("* ")
		}
		line := util.PadWidth(util.TruncateWidth(h.Title, inner-2), inner-2)
		style := m.theme.SidebarItem
		if m.sidebarFocus && i == m.selected {
			style = m.theme.SidebarSelected
		}
		b.WriteString(marker + style.Render(line) + "\n")
	}

	style := m.theme.Sidebar
	if m.sidebarFocus {
		style = m.theme.SidebarFocused
	}
	height := m.viewport.Height + 1 + inputHeight + 2
	return style.Width(sidebarWidth - 1).Height(height).Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every message of the conversation for width.
func (m Model) renderTranscript(width int) string {
	if m.conv == nil || m.conv.IsEmpty() {
		return m.renderEmptyState(width)
	}

	bubbleWidth := max(width-6, 10)
	blocks := make([]string, 0, len(m.conv.Messages))
	for _, msg := range m.conv.Messages {
		if block := m.renderMessage(msg, bubbleWidth); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	label := msg.Role.DisplayName()
	if !msg.Timestamp.IsZero() {
		label += "  " + msg.Timestamp.Format("15:04")
	}
	header := m.theme.RoleLabel.Render(label)

	switch {
	case msg.IsStreaming && msg.IsEmpty():
		return ""

	case msg.IsError:
		return header + "\n" + m.theme.ErrorBubble.Width(width).Render(msg.Content)

	case msg.Role == model.RoleUser:
		return header + "\n" + m.theme.UserBubble.Width(width).Render(msg.Content)
	}

	content := msg.Content
	if !msg.IsStreaming {
		content = m.markdown.Render(msg.ID, msg.Content, width-4)
	}
	out := header + "\n" + m.theme.AssistantBubble.Width(width).Render(content)
	if msg.Interrupted {
		out += "\n" + m.theme.Interrupted.Render("(stopped)")
	}
	return out
}

func (m Model) renderEmptyState(width int) string {
	lines := []string{
		m.theme.EmptyTitle.Render("Farm Support Assistant"),
		"",
		m.theme.EmptyHint.Render("Ask about planting dates, soil health, pests or irrigation."),
		m.theme.EmptyHint.Render(fmt.Sprintf("Device %s", util.ShortID(m.deviceID, 8))),
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(lines, "\n"))
}
