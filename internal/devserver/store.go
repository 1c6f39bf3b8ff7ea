// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/util"
)

// titleWidth caps conversation titles in the history list.
const titleWidth = 48

type conversation struct {
	id        string
	deviceID  string
	title     string
	messages  []backend.Message
	updatedAt time.Time
}

// Store keeps conversations in memory, keyed by chat id and owned by a device.
type Store struct {
	mu    sync.RWMutex
	chats map[string]*conversation
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chats: make(map[string]*conversation),
		now:   time.Now,
	}
}

// Append adds a message to a conversation, creating it on first use. It
// returns false when the chat id belongs to another device.
func (s *Store) Append(deviceID, chatID string, msg backend.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		c = &conversation{id: chatID, deviceID: deviceID}
		s.chats[chatID] = c
	}
	if c.deviceID != deviceID {
		return false
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if c.title == "" && msg.Role == "user" {
		c.title = util.Title(msg.Content, titleWidth)
	}
	c.messages = append(c.messages, msg)
	c.updatedAt = msg.Timestamp
	return true
}

// Messages returns a copy of a conversation's messages.
func (s *Store) Messages(deviceID, chatID string) ([]backend.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok || c.deviceID != deviceID {
		return nil, false
	}
	return append([]backend.Message(nil), c.messages...), true
}

// History lists a device's conversations, most recently updated first.
func (s *Store) History(deviceID string, limit int) []backend.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []backend.ChatSummary
	for _, c := range s.chats {
		if c.deviceID != deviceID {
			continue
		}
		out = append(out, backend.ChatSummary{
			ChatID:       c.id,
			Title:        c.title,
			MessageCount: len(c.messages),
			UpdatedAt:    c.updatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes a conversation. It reports whether one was removed.
func (s *Store) Delete(deviceID, chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok || c.deviceID != deviceID {
		return false
	}
	delete(s.chats, chatID)
	return true
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}
