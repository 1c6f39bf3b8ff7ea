// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/util"
)

// TitleWidth caps derived conversation titles.
const TitleWidth = 48

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the ordered transcript of one chat.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewConversation creates an empty conversation with a fresh UUID.
func NewConversation() *Conversation {
	return NewConversationWithID(uuid.NewString())
}

// NewConversationWithID creates an empty conversation with the given id.
func NewConversationWithID(id string) *Conversation {
	return &Conversation{ID: id, UpdatedAt: time.Now()}
}

// FromBackendMessages builds a conversation from fetched messages.
func FromBackendMessages(id string, msgs []backend.Message) *Conversation {
	c := NewConversationWithID(id)
	for _, bm := range msgs {
		c.AddMessage(FromBackend(bm))
	}
	return c
}

// AddMessage appends a message. The first user message names the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	if c.Title == "" && msg.Role == RoleUser {
		c.Title = util.Title(msg.Content, TitleWidth)
	}
}

// AddUserMessage appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage appends an empty streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddErrorMessage appends an error entry.
func (c *Conversation) AddErrorMessage(text string) *Message {
	msg := NewErrorMessage(text)
	c.AddMessage(msg)
	return msg
}

// MessageByID returns the message with the given id, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for _, m := range c.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		cp := *m
		out.Messages[i] = &cp
	}
	return &out
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is one row of the conversation history list.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SummaryFromBackend converts a history entry.
func SummaryFromBackend(cs backend.ChatSummary) Summary {
	title := cs.Title
	if title == "" {
		title = "Untitled chat"
	}
	return Summary{
		ID:           cs.ChatID,
		Title:        util.Title(title, TitleWidth),
		MessageCount: cs.MessageCount,
		UpdatedAt:    cs.UpdatedAt,
	}
}

// Summary returns the conversation's history row.
func (c *Conversation) Summary() Summary {
	return Summary{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		UpdatedAt:    c.UpdatedAt,
	}
}
