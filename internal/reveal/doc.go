// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal paces streamed assistant text onto the screen.
//
// Network deliveries arrive in bursts. The Engine decouples display from
// arrival: incoming text is filtered for suppressed markup, queued in a
// Buffer, and revealed a few characters at a time on a fixed tick. When the
// stream ends the engine switches to a faster flush cadence, drains what is
// left, and publishes a Result.
//
// # States
//
//	Idle -> Streaming -> Flushing -> Idle   (complete, or server error event)
//	Streaming -> Failed -> Idle             (transport failure)
//	Streaming|Flushing -> Cancelled -> Idle (user abort)
//
// # Key Types
//
//   - Engine: one response's reveal loop, owned by a single goroutine
//   - Buffer: ordered rune queue drained from the front
//   - MarkupFilter: resumable two-state scanner for <think>...</think> spans
//   - Clock, Ticker: tick source, swappable for ManualClock in tests
//   - Observer: UI boundary (reveal, metadata, finalized)
//
// # Usage
//
//	eng := reveal.New(turn, observer, reveal.DefaultOptions())
//	eng.Start(ctx)
//	err := client.ChatStream(ctx, req, func(p []byte) { eng.Feed(p) })
//	if err != nil {
//	    eng.Abort(err)
//	} else {
//	    eng.Complete()
//	}
//	<-eng.Done()
//	res := eng.Result()
package reveal
