// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import "unicode"

// DefaultMaxRun is the largest number of non-whitespace runes revealed per pump.
const DefaultMaxRun = 4

// =============================================================================
// REVEAL BUFFER
// =============================================================================

// Buffer is the ordered queue of characters that have arrived but are not yet
// displayed. Text is appended at the tail and consumed from the head, so
// display order always matches arrival order.
type Buffer struct {
	runes []rune
	head  int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append queues text at the tail.
func (b *Buffer) Append(text string) {
	if text == "" {
		return
	}
	b.runes = append(b.runes, []rune(text)...)
}

// Len returns the number of queued runes.
func (b *Buffer) Len() int {
	return len(b.runes) - b.head
}

// Empty reports whether nothing is queued.
func (b *Buffer) Empty() bool {
	return b.Len() == 0
}

// Next removes and returns the next run from the head.
//
// A run is any leading whitespace followed by 1 to maxRun non-whitespace
// runes, so words come out in short bursts and spaces ride along with the
// word that follows them. A remainder made only of whitespace is returned
// whole. Next returns "" on an empty buffer and never takes more than is
// queued.
func (b *Buffer) Next(maxRun int) string {
	if b.Empty() {
		return ""
	}
	if maxRun <= 0 {
		maxRun = DefaultMaxRun
	}

	i := b.head
	for i < len(b.runes) && unicode.IsSpace(b.runes[i]) {
		i++
	}
	taken := 0
	for i < len(b.runes) && taken < maxRun && !unicode.IsSpace(b.runes[i]) {
		i++
		taken++
	}

	run := string(b.runes[b.head:i])
	b.head = i
	b.compact()
	return run
}

// Drain removes and returns everything queued.
func (b *Buffer) Drain() string {
	if b.Empty() {
		return ""
	}
	s := string(b.runes[b.head:])
	b.Reset()
	return s
}

// Reset discards everything queued.
func (b *Buffer) Reset() {
	b.runes = b.runes[:0]
	b.head = 0
}

// compact reclaims the consumed prefix once it dominates the slice.
func (b *Buffer) compact() {
	if b.head == len(b.runes) {
		b.Reset()
		return
	}
	if b.head > 1024 && b.head > len(b.runes)/2 {
		n := copy(b.runes, b.runes[b.head:])
		b.runes = b.runes[:n]
		b.head = 0
	}
}
