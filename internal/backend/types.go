// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query    string `json:"query"`
	DeviceID string `json:"deviceId"`
	ChatID   string `json:"chatId,omitempty"`
}

// DeleteChatRequest is the body of DELETE /chat.
type DeleteChatRequest struct {
	ChatID   string `json:"chatId"`
	DeviceID string `json:"deviceId"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatSummary is one entry of the conversation history list.
type ChatSummary struct {
	ChatID       string    `json:"chatId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Chats []ChatSummary `json:"chats"`
	Error string        `json:"error,omitempty"`
}

// Message is one stored message of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatResponse is the body of GET /chatById.
type ChatResponse struct {
	ChatID   string    `json:"chatId,omitempty"`
	Messages []Message `json:"messages"`
	Error    string    `json:"error,omitempty"`
}

// ErrorResponse is the body the backend sends with a failing status.
type ErrorResponse struct {
	Error string `json:"error"`
}
