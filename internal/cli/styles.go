// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jeranaias/agrichat/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// Shared styles for line-oriented output.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Leaf)

	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Sky).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.AssistantBubbleFg)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Clay).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Harvest)
)
