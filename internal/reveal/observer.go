// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

// Observer receives engine output. Callbacks run on the engine goroutine and
// must not block for long or call back into the same Engine's Cancel and wait.
type Observer interface {
	// OnReveal carries the full display text of the turn after a run was added.
	OnReveal(turn int, text string)

	// OnMetadata reports the conversation id announced by the server.
	OnMetadata(turn int, conversationID string)

	// OnFinalized fires exactly once when the turn reaches a terminal outcome.
	OnFinalized(turn int, res Result)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Reveal    func(turn int, text string)
	Metadata  func(turn int, conversationID string)
	Finalized func(turn int, res Result)
}

func (o ObserverFuncs) OnReveal(turn int, text string) {
	if o.Reveal != nil {
		o.Reveal(turn, text)
	}
}

func (o ObserverFuncs) OnMetadata(turn int, conversationID string) {
	if o.Metadata != nil {
		o.Metadata(turn, conversationID)
	}
}

func (o ObserverFuncs) OnFinalized(turn int, res Result) {
	if o.Finalized != nil {
		o.Finalized(turn, res)
	}
}

type nopObserver struct{}

func (nopObserver) OnReveal(int, string)   {}
func (nopObserver) OnMetadata(int, string) {}
func (nopObserver) OnFinalized(int, Result) {}
