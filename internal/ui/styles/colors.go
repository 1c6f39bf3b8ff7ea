// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Leaf - Brand color, assistant accents, selections
var Leaf = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}

// LeafDeep - Darker green for backgrounds
var LeafDeep = lipgloss.AdaptiveColor{Light: "#166534", Dark: "#14532D"}

// Sky - User highlights, links, info
var Sky = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"}

// Soil - Secondary accent for headers and borders
var Soil = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#D6A26C"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Clay - Errors and failed turns
var Clay = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

// Harvest - Warnings and interrupted replies
var Harvest = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// SurfaceDim - Header and footer backgrounds
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F4", Dark: "#1C1917"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E7E5E4", Dark: "#44403C"}

// SelectionBg - Highlighted history entry
var SelectionBg = lipgloss.AdaptiveColor{Light: "#DCFCE7", Dark: "#14532D"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#E7E5E4"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"}

// TextMuted - Hints and timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#A8A29E", Dark: "#78716C"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

// User message bubble - Sky tones
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#0C4A6E", Dark: "#E0F2FE"}
var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#0EA5E9", Dark: "#0EA5E9"}

// Assistant message bubble - Leaf tones
var AssistantBubbleFg = lipgloss.AdaptiveColor{Light: "#14532D", Dark: "#DCFCE7"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#22C55E", Dark: "#22C55E"}

// Error entry - Clay tones
var ErrorBubbleFg = lipgloss.AdaptiveColor{Light: "#7F1D1D", Dark: "#FECACA"}
var ErrorBubbleBorder = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}

// =============================================================================
// ACCESSIBILITY
// =============================================================================

// StatusIndicatorSet contains text/shape indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators provides ASCII shape indicators alongside colors.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Leaf).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Clay).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Harvest).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Sky).Bold(true).
		Render(StatusIndicators.Info + " " + message)
}
