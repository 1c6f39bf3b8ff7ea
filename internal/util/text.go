// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to shortened text.
const Ellipsis = "..."

// TruncateWidth shortens s to at most maxWidth terminal columns, counting
// wide runes (CJK, emoji) as two. Shortened text ends in Ellipsis.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadWidth right-pads s with spaces to exactly width columns, shortening it
// first when it is too wide.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(TruncateWidth(s, width), width)
}

// OneLine collapses all whitespace runs, newlines included, to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title derives a list title from free text: one line, at most maxWidth columns.
func Title(s string, maxWidth int) string {
	return TruncateWidth(OneLine(s), maxWidth)
}

// ShortID returns the first n runes of id, or id itself when shorter.
func ShortID(id string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(id)
	if len(r) <= n {
		return id
	}
	return string(r[:n])
}
