// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/reveal"
)

// EventKind identifies a session event.
type EventKind int

const (
	// EventTurnStarted fires after the user message and the empty reply are
	// appended.
	EventTurnStarted EventKind = iota
	// EventReveal carries the reply text revealed so far.
	EventReveal
	// EventConversationID fires when the backend assigns the chat id.
	EventConversationID
	// EventTurnFinished carries the turn result after the transcript is updated.
	EventTurnFinished
	// EventHistory carries a refreshed history list.
	EventHistory
	// EventConversation fires when the current conversation is replaced.
	EventConversation
)

func (k EventKind) String() string {
	switch k {
	case EventTurnStarted:
		return "turn_started"
	case EventReveal:
		return "reveal"
	case EventConversationID:
		return "conversation_id"
	case EventTurnFinished:
		return "turn_finished"
	case EventHistory:
		return "history"
	case EventConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// Event describes a change in session state.
type Event struct {
	Kind           EventKind
	Turn           int
	Text           string
	ConversationID string
	Result         reveal.Result
	History        []model.Summary
}

// Listener receives session events. It must not block for long; reveal
// events arrive at the tick cadence.
type Listener func(Event)
