// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import "strings"

// Default suppressed-span markers.
const (
	DefaultStartMarker = "<think>"
	DefaultEndMarker   = "</think>"
)

// =============================================================================
// MARKUP FILTER
// =============================================================================

// MarkupFilter removes suppressed spans from text that arrives in pieces.
//
// It scans one rune at a time with two states, outside and inside a span.
// Runes that could still be the start of the marker for the current state are
// held in pending until they either complete the marker (state flips, marker
// dropped) or stop matching (released as text when outside, dropped when
// inside). Both the state and the pending runes survive between calls, so a
// marker split across deliveries is still recognised.
type MarkupFilter struct {
	start   []rune
	end     []rune
	inside  bool
	pending []rune
}

// NewMarkupFilter creates a filter for the given markers. If either marker is
// empty the filter passes text through unchanged.
func NewMarkupFilter(start, end string) *MarkupFilter {
	return &MarkupFilter{
		start: []rune(start),
		end:   []rune(end),
	}
}

// Strip returns the displayable part of text, updating the scanner state.
func (f *MarkupFilter) Strip(text string) string {
	if f.disabled() {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	for _, r := range text {
		f.step(r, &out)
	}
	return out.String()
}

// Flush ends the input. Runes held as a possible marker are released when
// outside a span and dropped when inside one.
func (f *MarkupFilter) Flush() string {
	var tail string
	if !f.inside {
		tail = string(f.pending)
	}
	f.pending = f.pending[:0]
	return tail
}

// Inside reports whether the scanner is currently within a suppressed span.
func (f *MarkupFilter) Inside() bool {
	return f.inside
}

// Held returns the number of runes waiting to be classified.
func (f *MarkupFilter) Held() int {
	return len(f.pending)
}

// Reset returns the filter to the outside state with nothing held.
func (f *MarkupFilter) Reset() {
	f.inside = false
	f.pending = f.pending[:0]
}

func (f *MarkupFilter) disabled() bool {
	return len(f.start) == 0 || len(f.end) == 0
}

// target is the marker that would flip the current state.
func (f *MarkupFilter) target() []rune {
	if f.inside {
		return f.end
	}
	return f.start
}

func (f *MarkupFilter) step(r rune, out *strings.Builder) {
	f.pending = append(f.pending, r)

	for len(f.pending) > 0 {
		marker := f.target()
		if runePrefix(marker, f.pending) {
			if len(f.pending) == len(marker) {
				f.inside = !f.inside
				f.pending = f.pending[:0]
			}
			return
		}

		// The held runes cannot start a marker at their first position.
		// Release that one rune and retry with the rest.
		if !f.inside {
			out.WriteRune(f.pending[0])
		}
		f.pending = append(f.pending[:0], f.pending[1:]...)
	}
}

// runePrefix reports whether p is a prefix of marker.
func runePrefix(marker, p []rune) bool {
	if len(p) > len(marker) {
		return false
	}
	for i := range p {
		if marker[i] != p[i] {
			return false
		}
	}
	return true
}
