// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the newline-delimited event stream returned by the
// support backend's chat endpoint.
//
// Each line of the response body is an independent JSON object whose "type"
// field selects the event kind:
//
//	{"type":"metadata","chatId":"..."}
//	{"type":"content","data":"partial text"}
//	{"type":"complete","chatId":"..."}
//	{"type":"error","message":"..."}
//
// Lines that are not valid JSON are not dropped. They are surfaced as
// KindRaw events and treated by callers as literal assistant text.
//
// # Key Types
//
//   - Event: one decoded line
//   - Decoder: incremental, per-line decoder that carries partial lines
//     between network deliveries
//   - Reader: pumps an io.Reader into a delivery callback
//
// # Usage
//
//	dec := stream.NewDecoder()
//	for _, ev := range dec.Feed(delivery) {
//	    switch ev.Kind {
//	    case stream.KindContent, stream.KindRaw:
//	        buf.Append(ev.Text)
//	    }
//	}
//	tail := dec.Flush() // at end of body
package stream
