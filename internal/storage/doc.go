// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps agrichat's local state in a SQLite database.
//
// It holds the persistent device id, the current conversation id, and a
// local copy of finalized transcripts so recent chats can be shown when the
// backend is unreachable.
//
// # Key Types
//
//   - Store: the database handle and its queries
//   - StorageError: error kinds, compared with errors.Is
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage.Path)
//	deviceID, err := store.DeviceID(ctx)
//	err = store.SaveConversation(ctx, conv)
//	conv, err := store.LoadConversation(ctx, id)
package storage
