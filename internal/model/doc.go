// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Key Types:
//   - Role: who sent a message (user, assistant, system)
//   - Message: one entry of the transcript, possibly still streaming
//   - Conversation: ordered messages under a conversation id
//   - Summary: one row of the conversation history list
//
// Conversations are not safe for concurrent use; the chat session owns them
// and hands out clones.
package model
