// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the farming-assistant support API.
//
// The chat endpoint answers with newline-delimited JSON that is handed to the
// caller one network read at a time; decoding and pacing happen downstream in
// the stream and reveal packages. The remaining endpoints are plain JSON.
//
// # Endpoints
//
//	POST   {base}/chat                          streamed answer
//	GET    {base}/history?deviceId=&limit=      recent conversations
//	GET    {base}/chatById?chatId=&deviceId=    one conversation's messages
//	DELETE {base}/chat                          remove a conversation
//	GET    {base}/health                        liveness
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: url})
//	err := client.ChatStream(ctx, backend.ChatRequest{
//	    Query:    "When should I plant maize?",
//	    DeviceID: deviceID,
//	    ChatID:   chatID,
//	}, func(p []byte) { engine.Feed(p) })
package backend
