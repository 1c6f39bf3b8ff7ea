// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders finished replies with glamour, caching output
// per message until the width changes.
type markdownRenderer struct {
	enabled bool
	style   string
	width   int
	tr      *glamour.TermRenderer
	cache   map[string]string
}

func newMarkdownRenderer(enabled bool, style string) *markdownRenderer {
	return &markdownRenderer{
		enabled: enabled,
		style:   style,
		cache:   make(map[string]string),
	}
}

// Render returns content as terminal Markdown. Plain content is returned
// when rendering is disabled or fails.
func (r *markdownRenderer) Render(id, content string, width int) string {
	if !r.enabled || width <= 0 {
		return content
	}
	if width != r.width || r.tr == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			r.enabled = false
			return content
		}
		r.tr = tr
		r.width = width
		r.cache = make(map[string]string)
	}

	key := id + "\x00" + content
	if out, ok := r.cache[key]; ok {
		return out
	}
	out, err := r.tr.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	r.cache[key] = out
	return out
}
