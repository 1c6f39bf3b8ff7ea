// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// =============================================================================
// EVENT KINDS
// =============================================================================

// Kind discriminates the events carried by the chat stream.
type Kind int

const (
	// KindRaw is a line that did not parse as JSON. Its text is literal content.
	KindRaw Kind = iota

	// KindMetadata identifies the server-assigned conversation.
	KindMetadata

	// KindContent carries a fragment of assistant output.
	KindContent

	// KindComplete signals the normal end of the stream.
	KindComplete

	// KindError signals a server-reported failure mid-stream.
	KindError
)

// Wire names for the "type" field.
const (
	TypeMetadata = "metadata"
	TypeContent  = "content"
	TypeComplete = "complete"
	TypeError    = "error"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMetadata:
		return TypeMetadata
	case KindContent:
		return TypeContent
	case KindComplete:
		return TypeComplete
	case KindError:
		return TypeError
	default:
		return "raw"
	}
}

// =============================================================================
// EVENT
// =============================================================================

// Event is one decoded line of the chat stream.
//
// Only the fields relevant to Kind are populated:
//   - KindMetadata, KindComplete: ConversationID
//   - KindContent, KindRaw: Text
//   - KindError: Message
type Event struct {
	Kind           Kind
	ConversationID string
	Text           string
	Message        string
}

// IsText reports whether the event contributes displayable text.
func (e Event) IsText() bool {
	return e.Kind == KindContent || e.Kind == KindRaw
}

// IsTerminal reports whether the event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// Metadata builds a metadata event.
func Metadata(conversationID string) Event {
	return Event{Kind: KindMetadata, ConversationID: conversationID}
}

// Content builds a content event.
func Content(text string) Event {
	return Event{Kind: KindContent, Text: text}
}

// Complete builds a completion event.
func Complete(conversationID string) Event {
	return Event{Kind: KindComplete, ConversationID: conversationID}
}

// Error builds an error event.
func Error(message string) Event {
	return Event{Kind: KindError, Message: message}
}

// Raw builds a literal-text event.
func Raw(text string) Event {
	return Event{Kind: KindRaw, Text: text}
}
