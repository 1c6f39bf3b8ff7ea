// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the support backend.
//
// It speaks the same HTTP and newline-delimited JSON protocol as the real
// service, keeps conversations in memory, and answers with canned agronomy
// replies that include a <think> block, chunked and delayed so the client's
// reveal pacing can be exercised without network access.
//
// Endpoints (under the /api prefix):
//   - POST   /chat     - streamed answer (application/x-ndjson)
//   - DELETE /chat     - delete a conversation
//   - GET    /history  - recent conversations for a device
//   - GET    /chatById - messages of one conversation
//   - GET    /health   - liveness
package devserver
