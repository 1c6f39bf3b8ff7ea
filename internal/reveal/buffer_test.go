// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_NextRuns(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxRun int
		want   []string
	}{
		{"short word", "hi", 4, []string{"hi"}},
		{"long word", "fertilizer", 4, []string{"fert", "iliz", "er"}},
		{"whitespace rides with word", "a bc  defgh", 4, []string{"a", " bc", "  defg", "h"}},
		{"newlines", "one\n\ntwo", 4, []string{"one", "\n\ntwo"}},
		{"trailing whitespace taken whole", "ok   ", 4, []string{"ok", "   "}},
		{"only whitespace", " \t\n", 4, []string{" \t\n"}},
		{"max run one", "abc", 1, []string{"a", "b", "c"}},
		{"multibyte", "größe", 4, []string{"größ", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer()
			b.Append(tt.input)

			var got []string
			for !b.Empty() {
				got = append(got, b.Next(tt.maxRun))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, strings.Join(got, ""))
		})
	}
}

func TestBuffer_NextOnEmpty(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, "", b.Next(4))
	assert.Equal(t, 0, b.Len())

	b.Append("x")
	assert.Equal(t, "x", b.Next(4))
	assert.Equal(t, "", b.Next(4))
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_AppendWhileDraining(t *testing.T) {
	b := NewBuffer()
	b.Append("abcdef")
	require.Equal(t, "abcd", b.Next(4))

	b.Append("gh ij")
	assert.Equal(t, "efgh", b.Next(4))
	assert.Equal(t, " ij", b.Next(4))
	assert.True(t, b.Empty())
}

func TestBuffer_Drain(t *testing.T) {
	b := NewBuffer()
	b.Append("rest of it")
	b.Next(4)
	assert.Equal(t, " of it", b.Drain())
	assert.True(t, b.Empty())
	assert.Equal(t, "", b.Drain())
}

func TestBuffer_LargeInputPreservesOrder(t *testing.T) {
	word := "maize "
	input := strings.Repeat(word, 2000)

	b := NewBuffer()
	b.Append(input)

	var sb strings.Builder
	for !b.Empty() {
		run := b.Next(4)
		require.NotEmpty(t, run)
		sb.WriteString(run)
	}
	assert.Equal(t, input, sb.String())
}
