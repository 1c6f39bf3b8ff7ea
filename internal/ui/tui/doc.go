// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the full-screen Bubble Tea chat interface.
//
// The model never touches a reveal engine directly. It submits input to a
// chat.Session and redraws from the session's events, which reach the
// program through a Relay:
//
//	relay := tui.NewRelay()
//	sess, _ := chat.Open(ctx, client, store, chat.Options{Listener: relay.Listen})
//	err := tui.Run(ctx, sess, relay, tui.Options{Markdown: true})
//
// Finished assistant replies are rendered as Markdown with glamour. The
// reply still streaming is shown as wrapped plain text so partial syntax
// does not flicker.
package tui
