// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.DisplayName())
	}
}

func TestNewErrorMessage(t *testing.T) {
	m := NewErrorMessage("Could not fetch response. Please try again.")
	assert.Equal(t, "Error: Could not fetch response. Please try again.", m.Content)
	assert.True(t, m.IsError)
	assert.Equal(t, RoleAssistant, m.Role)

	m = NewErrorMessage("Error: already prefixed")
	assert.Equal(t, "Error: already prefixed", m.Content)
}

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	c := NewConversation()
	require.NotEmpty(t, c.ID)

	c.AddAssistantMessage()
	assert.Equal(t, "", c.Title)

	c.AddUserMessage("When should I\nplant beans?")
	c.AddUserMessage("second question")
	assert.Equal(t, "When should I plant beans?", c.Title)
	assert.Equal(t, 3, c.MessageCount())
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	c := NewConversationWithID("c1")
	msg := c.AddAssistantMessage()
	msg.SetContent("partial")

	clone := c.Clone()
	msg.SetContent("changed")
	msg.Finalize(true)

	require.Len(t, clone.Messages, 1)
	assert.Equal(t, "partial", clone.Messages[0].Content)
	assert.True(t, clone.Messages[0].IsStreaming)
	assert.True(t, msg.Interrupted)
}

func TestFromBackendMessages(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := FromBackendMessages("c9", []backend.Message{
		{Role: "user", Content: "Is my soil acidic?", Timestamp: ts},
		{Role: "assistant", Content: "Test the pH first."},
		{Role: "bot", Content: "Error: Could not fetch response. Please try again."},
	})

	require.Equal(t, 3, c.MessageCount())
	assert.Equal(t, "c9", c.ID)
	assert.Equal(t, "Is my soil acidic?", c.Title)
	assert.Equal(t, ts, c.Messages[0].Timestamp)
	assert.Equal(t, RoleAssistant, c.Messages[2].Role)
	assert.True(t, c.Messages[2].IsError)
	assert.False(t, c.Messages[1].IsError)
	assert.Same(t, c.Messages[1], c.MessageByID(c.Messages[1].ID))
	assert.Same(t, c.Messages[2], c.LastMessage())
}

func TestSummaryFromBackend(t *testing.T) {
	s := SummaryFromBackend(backend.ChatSummary{ChatID: "x", MessageCount: 4})
	assert.Equal(t, "x", s.ID)
	assert.Equal(t, "Untitled chat", s.Title)
	assert.Equal(t, 4, s.MessageCount)
}
