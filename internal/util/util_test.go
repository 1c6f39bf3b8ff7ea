// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "maize", 10, "maize"},
		{"exact", "maize", 5, "maize"},
		{"ascii", "irrigation schedule", 10, "irrigat..."},
		{"zero", "maize", 0, ""},
		{"wide runes", "玉米种植指南", 7, "玉米..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWidth(tt.input, tt.maxWidth)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, runewidth.StringWidth(got), tt.maxWidth)
		})
	}
}

func TestPadWidth(t *testing.T) {
	assert.Equal(t, "ab   ", PadWidth("ab", 5))
	assert.Equal(t, "ab...", PadWidth("abcdefgh", 5))
	assert.Equal(t, 6, runewidth.StringWidth(PadWidth("土壤", 6)))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "How do I test soil pH?", Title("How do I\n  test soil pH?\n", 40))
	assert.Equal(t, "How ...", Title("How do I test soil pH?", 7))
	assert.Equal(t, "", Title("   \n\t", 10))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a9c1e", ShortID("3f2a9c1e-7b44-4f6d-9a51-0c8e2d9b7a10", 8))
	assert.Equal(t, "abc", ShortID("abc", 8))
	assert.Equal(t, "", ShortID("abc", 0))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0600))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
