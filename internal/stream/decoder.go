// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw network deliveries into events, one line at a time.
//
// A single delivery may hold several complete lines, and a line may be split
// across deliveries. Complete lines are decoded as soon as their newline
// arrives. A trailing partial line that may still be JSON is carried until the
// next Feed or Flush; one that cannot be (its first non-space byte is neither
// '{' nor '[') is literal text and is emitted right away, piece by piece.
//
// A Decoder is not safe for concurrent use. It is owned by one stream.
type Decoder struct {
	partial []byte
	literal bool // the current line is being emitted as literal text
	ignored int
	lines   int
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a delivery and returns the events for every line it completes.
func (d *Decoder) Feed(p []byte) []Event {
	d.partial = append(d.partial, p...)

	var events []Event
	start := 0
	for {
		i := bytes.IndexByte(d.partial[start:], '\n')
		if i < 0 {
			break
		}
		if ev, ok := d.endLine(d.partial[start : start+i]); ok {
			events = append(events, ev)
		}
		start += i + 1
	}

	// Keep only the unterminated tail, reusing the backing array.
	n := copy(d.partial, d.partial[start:])
	d.partial = d.partial[:n]

	if ev, ok := d.emitLiteral(); ok {
		events = append(events, ev)
	}
	return events
}

// endLine finishes the line whose newline just arrived.
func (d *Decoder) endLine(line []byte) (Event, bool) {
	if !d.literal {
		return d.decodeLine(line)
	}
	d.literal = false
	rest := bytes.TrimRight(line, "\r")
	if len(rest) == 0 {
		return Event{}, false
	}
	return Raw(string(rest)), true
}

// emitLiteral releases the partial line as literal text once it cannot be
// JSON. A trailing '\r' and an incomplete rune are held back.
func (d *Decoder) emitLiteral() (Event, bool) {
	if !d.literal {
		head := bytes.TrimLeft(d.partial, " \t\r")
		if len(head) == 0 || head[0] == '{' || head[0] == '[' {
			return Event{}, false
		}
		d.literal = true
		d.lines++
	}

	cut := len(d.partial)
	if cut > 0 && d.partial[cut-1] == '\r' {
		cut--
	}
	if cut > 0 {
		i := cut - 1
		for i > 0 && !utf8.RuneStart(d.partial[i]) {
			i--
		}
		if !utf8.FullRune(d.partial[i:cut]) {
			cut = i
		}
	}
	if cut == 0 {
		return Event{}, false
	}

	ev := Raw(string(d.partial[:cut]))
	n := copy(d.partial, d.partial[cut:])
	d.partial = d.partial[:n]
	return ev, true
}

// Flush decodes whatever partial line remains at end of stream.
func (d *Decoder) Flush() []Event {
	if len(d.partial) == 0 {
		d.literal = false
		return nil
	}
	line := d.partial
	d.partial = nil

	if ev, ok := d.endLine(line); ok {
		return []Event{ev}
	}
	return nil
}

// Pending returns the number of bytes held for an unterminated line.
func (d *Decoder) Pending() int {
	return len(d.partial)
}

// Ignored returns how many well-formed JSON lines were skipped because they
// carried no recognised "type".
func (d *Decoder) Ignored() int {
	return d.ignored
}

// Lines returns the number of non-blank lines decoded so far.
func (d *Decoder) Lines() int {
	return d.lines
}

// decodeLine classifies a single line. Blank lines produce no event.
func (d *Decoder) decodeLine(line []byte) (Event, bool) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return Event{}, false
	}
	d.lines++

	// Not JSON: literal content, decided per line.
	if !gjson.ValidBytes(line) {
		return Raw(string(line)), true
	}

	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		d.ignored++
		return Event{}, false
	}

	switch res.Get("type").String() {
	case TypeMetadata:
		return Metadata(firstString(res, "chatId", "conversationId")), true
	case TypeContent:
		return Content(res.Get("data").String()), true
	case TypeComplete:
		return Complete(firstString(res, "chatId", "conversationId")), true
	case TypeError:
		return Error(firstString(res, "message", "error")), true
	default:
		d.ignored++
		return Event{}, false
	}
}

// firstString returns the first non-empty string among the given paths.
func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}
