// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/reveal"
)

// Turn is one submitted question and its streamed answer.
type Turn struct {
	number int
	input  string
	reply  *model.Message

	engine    *reveal.Engine
	transport *cancelManager
	done      chan struct{}
	result    reveal.Result
}

// Number returns the turn number within the session.
func (t *Turn) Number() int {
	return t.number
}

// Input returns the submitted text.
func (t *Turn) Input() string {
	return t.input
}

// Done is closed after the transcript has been updated for the outcome.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Result returns the final result. Valid after Done.
func (t *Turn) Result() reveal.Result {
	select {
	case <-t.done:
		return t.result
	default:
		return t.engine.Result()
	}
}

// Wait blocks until the turn is finished or ctx ends.
func (t *Turn) Wait(ctx context.Context) (reveal.Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return reveal.Result{}, ctx.Err()
	}
}

// Text returns the reply revealed so far.
func (t *Turn) Text() string {
	return t.engine.Text()
}

// stop cancels the reveal and the request.
func (t *Turn) stop() {
	t.engine.Cancel()
	t.transport.cancel()
}
