// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/agrichat/internal/stream"
	"go.uber.org/zap"
)

// =============================================================================
// STATE AND OUTCOME
// =============================================================================

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFlushing
	StateCancelled
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFlushing:
		return "flushing"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a turn ended.
type Outcome int

const (
	// OutcomePending means the turn has not finished.
	OutcomePending Outcome = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeCancelled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrCancelled is the Result error of a turn stopped by Cancel.
var ErrCancelled = errors.New("reveal: cancelled")

// ServerError is the Result error of a turn that ended with a server error event.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// Result is the final record of one turn.
type Result struct {
	Turn           int
	Outcome        Outcome
	Text           string
	ConversationID string

	// Err is nil for Completed. For Failed it is a *ServerError or the
	// transport error passed to Abort. For Cancelled it is ErrCancelled or
	// the context error.
	Err error

	// Revealed counts runes moved to the display.
	Revealed int
	// Discarded counts runes still buffered when the turn stopped.
	Discarded int
	// Ticks counts ticks handled across both cadences.
	Ticks int
	// Ignored counts structured lines the decoder did not recognise.
	Ignored  int
	Duration time.Duration
}

// ServerMessage returns the server error text for turns failed by an error event.
func (r Result) ServerMessage() (string, bool) {
	var se *ServerError
	if errors.As(r.Err, &se) {
		return se.Message, true
	}
	return "", false
}

// =============================================================================
// ENGINE
// =============================================================================

type signalKind int

const (
	sigData signalKind = iota
	sigComplete
	sigFail
	sigAbort
)

type signal struct {
	kind signalKind
	data []byte
	id   string
	msg  string
	err  error
}

// Engine reveals one assistant response.
//
// All buffer, filter and decoder state is owned by the goroutine started by
// Start. The other methods only send it signals, so they are safe to call
// from any goroutine. The display text and state are published under a
// small mutex for readers.
type Engine struct {
	turn   int
	opts   Options
	obs    Observer
	logger *zap.Logger

	decoder *stream.Decoder
	filter  *MarkupFilter
	buffer  *Buffer

	inbox      chan signal
	cancel     chan struct{}
	cancelOnce sync.Once
	startOnce  sync.Once
	done       chan struct{}

	// Owned by the run goroutine.
	pending        Outcome
	pendingErr     error
	conversationID string
	ticks          int
	revealed       int
	startedAt      time.Time

	mu        sync.Mutex
	state     State
	text      strings.Builder
	cancelled bool
	finished  bool
	result    Result
}

// New creates an idle engine for the given turn. A nil observer is allowed.
func New(turn int, obs Observer, opts Options) *Engine {
	opts = opts.withDefaults()
	if obs == nil {
		obs = nopObserver{}
	}
	return &Engine{
		turn:    turn,
		opts:    opts,
		obs:     obs,
		logger:  opts.Logger.With(zap.Int("turn", turn)),
		decoder: stream.NewDecoder(),
		filter:  NewMarkupFilter(opts.StartMarker, opts.EndMarker),
		buffer:  NewBuffer(),
		inbox:   make(chan signal, 16),
		cancel:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start moves the engine to Streaming and launches its loop. Cancelling ctx
// has the same effect as Cancel. Calling Start more than once, or after
// Cancel, does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.startedAt = time.Now()
		e.setState(StateStreaming)
		e.logger.Debug("reveal started",
			zap.Duration("tick", e.opts.TickInterval),
			zap.Int("pumps_per_tick", e.opts.PumpsPerTick))
		go e.run(ctx, e.opts.Clock.NewTicker(e.opts.TickInterval))
	})
}

// Feed hands one network delivery to the engine. It returns false once the
// engine has stopped accepting input.
func (e *Engine) Feed(p []byte) bool {
	if len(p) == 0 {
		return true
	}
	data := make([]byte, len(p))
	copy(data, p)
	return e.send(signal{kind: sigData, data: data})
}

// Complete reports that the stream ended normally. Buffered text is drained
// at the flush cadence before the turn is finalized as Completed.
func (e *Engine) Complete(conversationID string) bool {
	return e.send(signal{kind: sigComplete, id: conversationID})
}

// Fail reports a server-side failure. Buffered text is drained before the
// turn is finalized as Failed.
func (e *Engine) Fail(message string) bool {
	return e.send(signal{kind: sigFail, msg: message})
}

// Abort reports a transport failure. The turn is finalized as Failed
// immediately. Unrevealed text is discarded and the display is kept. Once a
// complete or error event has been received, Abort is ignored and the turn
// drains to that outcome.
func (e *Engine) Abort(err error) bool {
	if err == nil {
		err = errors.New("transport aborted")
	}
	return e.send(signal{kind: sigAbort, err: err})
}

// Cancel stops the turn. The display keeps what was revealed and never
// changes after Cancel returns. Safe to call repeatedly and before Start.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.cancelled = true
	e.mu.Unlock()

	// Never started: finalize here since no loop will.
	e.startOnce.Do(func() {
		e.finish(OutcomeCancelled, ErrCancelled)
		close(e.done)
	})
	e.cancelOnce.Do(func() { close(e.cancel) })
}

// Done is closed once the turn is finalized and the loop has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the turn is finalized or ctx ends.
func (e *Engine) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
		return e.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the final result. Before Done it reports OutcomePending.
func (e *Engine) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.finished {
		return Result{Turn: e.turn, Outcome: OutcomePending, Text: e.text.String()}
	}
	return e.result
}

// Text returns the current display text.
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text.String()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Turn returns the turn number this engine reveals.
func (e *Engine) Turn() int {
	return e.turn
}

func (e *Engine) send(sig signal) bool {
	select {
	case <-e.done:
		return false
	case <-e.cancel:
		return false
	default:
	}
	select {
	case e.inbox <- sig:
		return true
	case <-e.done:
		return false
	case <-e.cancel:
		return false
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// =============================================================================
// LOOP
// =============================================================================

func (e *Engine) run(ctx context.Context, ticker Ticker) {
	defer close(e.done)
	defer func() { ticker.Stop() }()
	flushing := false

	for {
		select {
		case <-ctx.Done():
			e.finish(OutcomeCancelled, ctx.Err())
			return
		case <-e.cancel:
			e.finish(OutcomeCancelled, ErrCancelled)
			return
		case sig := <-e.inbox:
			if e.handle(sig) {
				return
			}
		case <-ticker.C():
			if e.tick() {
				return
			}
		}

		if !flushing && e.State() == StateFlushing {
			ticker.Stop()
			ticker = e.opts.Clock.NewTicker(e.opts.FlushInterval)
			flushing = true
		}
	}
}

// handle applies one signal and reports whether the turn is finalized.
func (e *Engine) handle(sig signal) bool {
	switch sig.kind {
	case sigData:
		if e.State() != StateStreaming {
			e.logger.Debug("delivery after end of stream dropped", zap.Int("bytes", len(sig.data)))
			return false
		}
		return e.dispatch(e.decoder.Feed(sig.data))

	case sigComplete:
		if e.State() != StateStreaming {
			return false
		}
		if e.dispatch(e.decoder.Flush()) {
			return true
		}
		if e.State() != StateStreaming {
			return false
		}
		return e.beginFlush(OutcomeCompleted, sig.id, nil)

	case sigFail:
		if e.State() != StateStreaming {
			return false
		}
		if e.dispatch(e.decoder.Flush()) {
			return true
		}
		if e.State() != StateStreaming {
			return false
		}
		e.logger.Warn("stream failed by caller", zap.String("message", sig.msg))
		return e.beginFlush(OutcomeFailed, "", &ServerError{Message: sig.msg})

	case sigAbort:
		// The stream already ended; finish draining to that outcome.
		if e.State() == StateFlushing {
			e.logger.Debug("transport error after end of stream ignored", zap.Error(sig.err))
			return false
		}
		e.logger.Warn("transport aborted", zap.Error(sig.err))
		e.finish(OutcomeFailed, sig.err)
		return true
	}
	return false
}

// dispatch routes decoded events. Events after a terminal event are ignored.
func (e *Engine) dispatch(events []stream.Event) bool {
	for _, ev := range events {
		if e.State() != StateStreaming {
			return false
		}
		switch ev.Kind {
		case stream.KindMetadata:
			e.conversationID = ev.ConversationID
			e.logger.Debug("metadata", zap.String("chat_id", ev.ConversationID))
			e.obs.OnMetadata(e.turn, ev.ConversationID)

		case stream.KindContent, stream.KindRaw:
			e.buffer.Append(e.filter.Strip(ev.Text))

		case stream.KindComplete:
			if e.beginFlush(OutcomeCompleted, ev.ConversationID, nil) {
				return true
			}

		case stream.KindError:
			e.logger.Warn("server error event", zap.String("message", ev.Message))
			if e.beginFlush(OutcomeFailed, "", &ServerError{Message: ev.Message}) {
				return true
			}
		}
	}
	return false
}

// beginFlush stops accepting content and switches to draining. It finalizes
// right away when nothing is buffered.
func (e *Engine) beginFlush(outcome Outcome, conversationID string, err error) bool {
	if conversationID != "" {
		e.conversationID = conversationID
	}
	e.pending = outcome
	e.pendingErr = err
	e.buffer.Append(e.filter.Flush())
	e.setState(StateFlushing)

	e.logger.Debug("flushing",
		zap.String("outcome", outcome.String()),
		zap.Int("buffered", e.buffer.Len()))

	if e.buffer.Empty() {
		e.finish(outcome, err)
		return true
	}
	return false
}

// tick runs one cadence step and reports whether the turn is finalized.
func (e *Engine) tick() bool {
	e.ticks++
	switch e.State() {
	case StateStreaming:
		for i := 0; i < e.opts.PumpsPerTick; i++ {
			if !e.pump() {
				break
			}
		}
	case StateFlushing:
		e.pump()
		if e.buffer.Empty() {
			e.finish(e.pending, e.pendingErr)
			return true
		}
	}
	return false
}

// pump moves one run from the buffer to the display. It is a no-op on an
// empty buffer or after Cancel.
func (e *Engine) pump() bool {
	run := e.buffer.Next(e.opts.MaxRun)
	if run == "" {
		return false
	}

	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		return false
	}
	e.text.WriteString(run)
	snapshot := e.text.String()
	e.mu.Unlock()

	e.revealed += utf8.RuneCountInString(run)
	e.obs.OnReveal(e.turn, snapshot)
	return true
}

// finish publishes the result. A Cancel that raced the last step wins.
func (e *Engine) finish(outcome Outcome, err error) {
	discarded := e.buffer.Len()
	e.buffer.Reset()

	e.mu.Lock()
	if e.cancelled && outcome != OutcomeCancelled {
		outcome = OutcomeCancelled
		err = ErrCancelled
	}
	var elapsed time.Duration
	if !e.startedAt.IsZero() {
		elapsed = time.Since(e.startedAt)
	}
	e.result = Result{
		Turn:           e.turn,
		Outcome:        outcome,
		Text:           e.text.String(),
		ConversationID: e.conversationID,
		Err:            err,
		Revealed:       e.revealed,
		Discarded:      discarded,
		Ticks:          e.ticks,
		Ignored:        e.decoder.Ignored(),
		Duration:       elapsed,
	}
	e.state = StateIdle
	e.finished = true
	res := e.result
	e.mu.Unlock()

	e.logger.Info("reveal finalized",
		zap.String("outcome", outcome.String()),
		zap.String("chat_id", res.ConversationID),
		zap.Int("revealed", res.Revealed),
		zap.Int("discarded", res.Discarded),
		zap.Int("ticks", res.Ticks),
		zap.Duration("elapsed", res.Duration))

	e.obs.OnFinalized(e.turn, res)
}
