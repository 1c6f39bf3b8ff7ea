// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ErrorPrefix starts every error entry shown in the transcript.
const ErrorPrefix = "Error: "

// Message represents a single entry of the transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsStreaming is true while the reply is still being revealed.
	IsStreaming bool `json:"-"`

	// IsError marks an error entry appended after a failed turn.
	IsError bool `json:"is_error,omitempty"`

	// Interrupted marks a reply stopped by the user.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message in streaming state.
func NewAssistantMessage() *Message {
	m := NewMessage(RoleAssistant, "")
	m.IsStreaming = true
	return m
}

// NewErrorMessage creates an assistant entry reporting a failure.
// The text is prefixed with ErrorPrefix unless it already carries it.
func NewErrorMessage(text string) *Message {
	if !strings.HasPrefix(text, ErrorPrefix) {
		text = ErrorPrefix + text
	}
	m := NewMessage(RoleAssistant, text)
	m.IsError = true
	return m
}

// FromBackend converts a stored backend message.
func FromBackend(bm backend.Message) *Message {
	role := Role(bm.Role)
	if role != RoleUser && role != RoleSystem {
		role = RoleAssistant
	}
	m := NewMessage(role, bm.Content)
	if !bm.Timestamp.IsZero() {
		m.Timestamp = bm.Timestamp
	}
	m.IsError = role == RoleAssistant && strings.HasPrefix(bm.Content, ErrorPrefix)
	return m
}

// SetContent replaces the revealed text of a streaming message.
func (m *Message) SetContent(text string) {
	m.Content = text
}

// Finalize ends streaming.
func (m *Message) Finalize(interrupted bool) {
	m.IsStreaming = false
	m.Interrupted = interrupted
}

// IsEmpty returns true if the message has no visible content.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// Preview returns a single-line preview of the content.
func (m *Message) Preview(maxWidth int) string {
	return util.Title(m.Content, maxWidth)
}
