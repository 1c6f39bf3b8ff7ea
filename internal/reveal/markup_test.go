// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stripAll(f *MarkupFilter, parts ...string) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(f.Strip(p))
	}
	sb.WriteString(f.Flush())
	return sb.String()
}

func TestMarkupFilter_Strip(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"no markup", []string{"plain text"}, "plain text"},
		{"single span", []string{"a<think>hidden</think>b"}, "ab"},
		{"two spans", []string{"<think>x</think>one <think>y</think>two"}, "one two"},
		{"start split", []string{"<thi", "nk>hidden</think>visible"}, "visible"},
		{"end split", []string{"<think>hid</th", "ink>visible"}, "visible"},
		{"rune per part", strings.Split("a<think>b</think>c", ""), "ac"},
		{"not a marker", []string{"x < y and <b>bold</b>"}, "x < y and <b>bold</b>"},
		{"overlapping prefix", []string{"<<think>z</think>>"}, "<>"},
		{"repeated lt", []string{"<<<", "think>q</think>"}, "<<"},
		{"unterminated span", []string{"keep<think>never closed"}, "keep"},
		{"stray end marker", []string{"a</think>b"}, "a</think>b"},
		{"unicode", []string{"Pflanze 🌱<think>intern</think> gesund"}, "Pflanze 🌱 gesund"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)
			assert.Equal(t, tt.want, stripAll(f, tt.parts...))
		})
	}
}

func TestMarkupFilter_HoldsPendingPrefix(t *testing.T) {
	f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)

	assert.Equal(t, "", f.Strip("<thi"))
	assert.Equal(t, 4, f.Held())
	assert.False(t, f.Inside())

	assert.Equal(t, "", f.Strip("nk>hid"))
	assert.True(t, f.Inside())

	assert.Equal(t, "visible", f.Strip("den</think>visible"))
	assert.False(t, f.Inside())
	assert.Equal(t, 0, f.Held())
}

func TestMarkupFilter_Flush(t *testing.T) {
	t.Run("leaks prefix outside span", func(t *testing.T) {
		f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)
		assert.Equal(t, "tail", f.Strip("tail<thi"))
		assert.Equal(t, "<thi", f.Flush())
	})

	t.Run("drops prefix inside span", func(t *testing.T) {
		f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)
		assert.Equal(t, "", f.Strip("<think>abc</thi"))
		assert.Equal(t, "", f.Flush())
	})
}

func TestMarkupFilter_Disabled(t *testing.T) {
	f := NewMarkupFilter("", "")
	assert.Equal(t, "<think>kept</think>", f.Strip("<think>kept</think>"))
	assert.Equal(t, "", f.Flush())
}

func TestMarkupFilter_Reset(t *testing.T) {
	f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)
	f.Strip("<think>inside")
	assert.True(t, f.Inside())

	f.Reset()
	assert.False(t, f.Inside())
	assert.Equal(t, "fresh", f.Strip("fresh"))
}

// Every way of cutting the input into three pieces yields the same output.
func TestMarkupFilter_AllSplits(t *testing.T) {
	inputs := map[string]string{
		"Hello <think>reasoning here</think>world":   "Hello world",
		"<think>a</think><think>b</think>done":        "done",
		"x<think>one</think>y<think>two</think>z":     "xyz",
		"Soil pH <think>check < and </th</think>is 6": "Soil pH is 6",
	}

	for in, want := range inputs {
		r := []rune(in)
		for i := 0; i <= len(r); i++ {
			for j := i; j <= len(r); j++ {
				f := NewMarkupFilter(DefaultStartMarker, DefaultEndMarker)
				got := stripAll(f, string(r[:i]), string(r[i:j]), string(r[j:]))
				if got != want {
					t.Fatalf("split %d/%d of %q: got %q, want %q", i, j, in, got, want)
				}
			}
		}
	}
}
