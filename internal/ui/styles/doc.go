// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the agrichat TUI.

Colors use Lip Gloss AdaptiveColor so the same palette works on light and
dark terminals. The palette follows the field: leaf green for the brand and
assistant replies, sky blue for the farmer's own messages, harvest amber for
warnings and clay red for errors.

# Theme

NewTheme detects the terminal with termenv and builds every style once:

	theme := styles.NewTheme("auto")
	fmt.Println(theme.UserBubble.Render("How much lime per acre?"))

"dark" and "light" force the background instead of detecting it.

# Accessibility

Status helpers prefix messages with ASCII shape indicators ([OK], [X], [!],
[i]) so meaning never depends on color alone.
*/
package styles
