// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs conversation turns against the support backend.
//
// A Session owns the current conversation and allows one turn at a time.
// Each turn pairs a reveal.Engine with a streaming backend request:
//
//	sess, _ := chat.Open(ctx, client, store, chat.Options{Reveal: cfg.RevealOptions()})
//	turn, _ := sess.Submit(ctx, "When should I plant maize?")
//	res, _ := turn.Wait(ctx)
//
// A failed turn keeps whatever was already revealed, appends an error entry
// to the transcript and restores the submitted text into Input. A cancelled
// turn keeps its partial text and appends nothing.
//
// UIs follow progress through a Listener, which is called from background
// goroutines without any session lock held.
package chat
