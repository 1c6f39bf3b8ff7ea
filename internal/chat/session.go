// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/model"
	"github.com/jeranaias/agrichat/internal/reveal"
	"github.com/jeranaias/agrichat/internal/storage"
	"github.com/jeranaias/agrichat/internal/stream"
	"go.uber.org/zap"
)

// TransportErrorText is the entry appended when the answer could not be fetched.
const TransportErrorText = "Error: Could not fetch response. Please try again."

// Defaults for Options.
const (
	DefaultStreamTimeout = 2 * time.Minute
	DefaultHistoryLimit  = 10
)

var (
	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("chat: empty input")

	// ErrTurnInFlight is returned by TrySubmit while a turn is running.
	ErrTurnInFlight = errors.New("chat: a response is still streaming")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("chat: session closed")
)

// Backend is the part of the support API a session uses.
type Backend interface {
	ChatStream(ctx context.Context, req backend.ChatRequest, onDelivery stream.DeliveryFunc) error
	History(ctx context.Context, deviceID string, limit int) ([]backend.ChatSummary, error)
	ChatByID(ctx context.Context, chatID, deviceID string) ([]backend.Message, error)
	DeleteChat(ctx context.Context, chatID, deviceID string) error
}

// Options configures a Session.
type Options struct {
	Reveal        reveal.Options
	StreamTimeout time.Duration
	HistoryLimit  int
	Listener      Listener
	Logger        *zap.Logger
}

// Session is the conversation controller shared by the UIs.
type Session struct {
	backend Backend
	store   *storage.Store
	opts    Options
	logger  *zap.Logger

	// ops serializes operations that replace the active turn or conversation.
	ops sync.Mutex

	mu       sync.Mutex
	deviceID string
	conv     *model.Conversation
	history  []model.Summary
	input    string
	turns    int
	active   *Turn
	closed   bool
}

// Open creates a session for the stored device. The last conversation is
// restored from the local cache when present. No network call is made.
func Open(ctx context.Context, b Backend, store *storage.Store, opts Options) (*Session, error) {
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = DefaultStreamTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reveal.Logger == nil {
		opts.Reveal.Logger = opts.Logger
	}

	deviceID, err := store.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device id: %w", err)
	}

	s := &Session{
		backend:  b,
		store:    store,
		opts:     opts,
		logger:   opts.Logger.Named("chat"),
		deviceID: deviceID,
	}

	chatID, err := store.CurrentChatID(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		chatID = ""
	} else if err != nil {
		return nil, fmt.Errorf("load current chat: %w", err)
	}
	switch {
	case chatID == "":
		s.conv = model.NewConversation()
		if err := store.SetCurrentChatID(ctx, s.conv.ID); err != nil {
			return nil, fmt.Errorf("save current chat: %w", err)
		}
	default:
		conv, err := store.LoadConversation(ctx, chatID)
		if errors.Is(err, storage.ErrNotFound) {
			conv = model.NewConversationWithID(chatID)
		} else if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		s.conv = conv
	}

	s.logger.Debug("session opened",
		zap.String("device_id", deviceID),
		zap.String("chat_id", s.conv.ID))
	return s, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// DeviceID returns the persistent device identifier.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Conversation returns a copy of the current conversation.
func (s *Session) Conversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Clone()
}

// ConversationID returns the current conversation id.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.ID
}

// History returns the last fetched history list.
func (s *Session) History() []model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Summary, len(s.history))
	copy(out, s.history)
	return out
}

// Input returns text restored after a failed turn, or "".
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// TakeInput returns the restored input and clears it.
func (s *Session) TakeInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.input
	s.input = ""
	return in
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// SetRevealOptions changes the cadence used by later turns. The turn in
// flight keeps its options.
func (s *Session) SetRevealOptions(opts reveal.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Logger == nil {
		opts.Logger = s.opts.Logger
	}
	s.opts.Reveal = opts
}

// Active returns the in-flight turn, or nil.
func (s *Session) Active() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// =============================================================================
// TURNS
// =============================================================================

// Submit starts a turn for input. Any in-flight turn is cancelled and waited
// for first. ctx bounds the whole turn, not just the call.
func (s *Session) Submit(ctx context.Context, input string) (*Turn, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopActive()
	return s.start(ctx, input)
}

// TrySubmit starts a turn unless one is already in flight.
func (s *Session) TrySubmit(ctx context.Context, input string) (*Turn, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.Busy() {
		return nil, ErrTurnInFlight
	}
	return s.start(ctx, input)
}

// Cancel stops the in-flight turn, if any, and waits for it to finish.
func (s *Session) Cancel() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopActive()
}

// Close cancels any in-flight turn. Further submissions fail with ErrClosed.
func (s *Session) Close() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopActive()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// stopActive cancels the active turn and waits for it. Callers hold ops.
func (s *Session) stopActive() {
	s.mu.Lock()
	t := s.active
	s.mu.Unlock()
	if t == nil {
		return
	}
	t.stop()
	<-t.done
}

func (s *Session) start(ctx context.Context, input string) (*Turn, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.turns++
	s.input = ""
	s.conv.AddUserMessage(text)
	reply := s.conv.AddAssistantMessage()
	req := backend.ChatRequest{Query: text, DeviceID: s.deviceID, ChatID: s.conv.ID}

	t := &Turn{
		number: s.turns,
		input:  input,
		reply:  reply,
		done:   make(chan struct{}),
	}
	t.engine = reveal.New(t.number, s.observer(t), s.opts.Reveal)
	streamTimeout := s.opts.StreamTimeout
	s.active = t
	s.mu.Unlock()

	s.logger.Info("turn started",
		zap.Int("turn", t.number),
		zap.String("chat_id", req.ChatID),
		zap.Int("query_len", len(text)))
	s.emit(Event{Kind: EventTurnStarted, Turn: t.number, ConversationID: req.ChatID})

	streamCtx, cancel := context.WithTimeout(ctx, streamTimeout)
	t.transport = newCancelManager(cancel)
	t.engine.Start(ctx)

	transportDone := make(chan struct{})
	go func() {
		defer close(transportDone)
		err := s.backend.ChatStream(streamCtx, req, func(p []byte) {
			t.engine.Feed(p)
		})
		// Signals queue behind the deliveries, so a read error that follows a
		// complete event is ignored by the engine.
		if err != nil {
			t.engine.Abort(err)
			return
		}
		// End of body counts as completion when no complete event arrived.
		t.engine.Complete("")
	}()

	go func() {
		<-t.engine.Done()
		t.transport.cancel()
		<-transportDone
		s.finish(t)
	}()

	return t, nil
}

func (s *Session) observer(t *Turn) reveal.Observer {
	return reveal.ObserverFuncs{
		Reveal: func(turn int, text string) {
			s.mu.Lock()
			t.reply.SetContent(text)
			s.mu.Unlock()
			s.emit(Event{Kind: EventReveal, Turn: turn, Text: text})
		},
		Metadata: func(turn int, id string) {
			if id == "" {
				return
			}
			s.mu.Lock()
			changed := s.active == t && s.conv.ID != id
			if changed {
				s.conv.ID = id
			}
			s.mu.Unlock()
			if !changed {
				return
			}
			if err := s.store.SetCurrentChatID(context.Background(), id); err != nil {
				s.logger.Warn("save chat id failed", zap.Error(err))
			}
			s.emit(Event{Kind: EventConversationID, Turn: turn, ConversationID: id})
		},
	}
}

// finish records the outcome of t in the transcript.
func (s *Session) finish(t *Turn) {
	res := t.engine.Result()

	s.mu.Lock()
	t.reply.SetContent(res.Text)
	t.reply.Finalize(res.Outcome == reveal.OutcomeCancelled)
	if res.ConversationID != "" && s.conv.ID != res.ConversationID {
		s.conv.ID = res.ConversationID
	}
	if t.reply.IsEmpty() && res.Outcome != reveal.OutcomeCompleted {
		s.removeMessage(t.reply)
	}
	if res.Outcome == reveal.OutcomeFailed {
		s.conv.AddErrorMessage(errorText(res))
		s.input = t.input
	}
	snapshot := s.conv.Clone()
	s.active = nil
	s.mu.Unlock()

	t.result = res

	logFn := s.logger.Info
	if res.Outcome == reveal.OutcomeFailed {
		logFn = s.logger.Warn
	}
	logFn("turn finished",
		zap.Int("turn", t.number),
		zap.String("outcome", res.Outcome.String()),
		zap.String("chat_id", snapshot.ID),
		zap.Int("revealed", res.Revealed),
		zap.Duration("duration", res.Duration),
		zap.Error(res.Err))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SaveConversation(ctx, snapshot); err != nil {
		s.logger.Warn("save conversation failed", zap.Error(err))
	}
	if err := s.store.SetCurrentChatID(ctx, snapshot.ID); err != nil {
		s.logger.Warn("save chat id failed", zap.Error(err))
	}

	close(t.done)
	s.emit(Event{Kind: EventTurnFinished, Turn: t.number, ConversationID: snapshot.ID, Result: res, Text: res.Text})

	if res.Outcome == reveal.OutcomeCompleted {
		if _, err := s.RefreshHistory(ctx); err != nil {
			s.logger.Debug("history refresh failed", zap.Error(err))
		}
	}
}

// removeMessage drops m from the conversation. Callers hold mu.
func (s *Session) removeMessage(m *model.Message) {
	msgs := s.conv.Messages[:0]
	for _, x := range s.conv.Messages {
		if x != m {
			msgs = append(msgs, x)
		}
	}
	s.conv.Messages = msgs
}

func errorText(res reveal.Result) string {
	if msg, ok := res.ServerMessage(); ok && strings.TrimSpace(msg) != "" {
		return model.ErrorPrefix + msg
	}
	return TransportErrorText
}

func (s *Session) emit(ev Event) {
	if s.opts.Listener != nil {
		s.opts.Listener(ev)
	}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// NewConversation cancels any in-flight turn and starts an empty conversation
// with a fresh id.
func (s *Session) NewConversation(ctx context.Context) (*model.Conversation, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopActive()
	return s.replace(ctx, model.NewConversation())
}

// replace makes conv current and persists its id. Callers hold ops.
func (s *Session) replace(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	s.mu.Lock()
	s.conv = conv
	s.input = ""
	snapshot := conv.Clone()
	s.mu.Unlock()

	if err := s.store.SetCurrentChatID(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("save current chat: %w", err)
	}
	s.logger.Info("conversation switched", zap.String("chat_id", conv.ID), zap.Int("messages", conv.MessageCount()))
	s.emit(Event{Kind: EventConversation, ConversationID: conv.ID})
	return snapshot, nil
}

// LoadConversation makes the conversation with id current. The backend copy
// is preferred; the local cache is used when the backend cannot be reached.
func (s *Session) LoadConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.stopActive()

	msgs, err := s.backend.ChatByID(ctx, id, s.DeviceID())
	if err == nil {
		conv := model.FromBackendMessages(id, msgs)
		if saveErr := s.store.SaveConversation(ctx, conv); saveErr != nil {
			s.logger.Warn("cache conversation failed", zap.Error(saveErr))
		}
		return s.replace(ctx, conv)
	}

	conv, cacheErr := s.store.LoadConversation(ctx, id)
	if cacheErr != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	s.logger.Warn("backend unavailable, using cached conversation", zap.String("chat_id", id), zap.Error(err))
	return s.replace(ctx, conv)
}

// DeleteConversation deletes id on the backend and locally. Deleting the
// current conversation starts a new one.
func (s *Session) DeleteConversation(ctx context.Context, id string) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	current := s.ConversationID() == id
	if current {
		s.stopActive()
	}

	if err := s.backend.DeleteChat(ctx, id, s.DeviceID()); err != nil && !backend.IsStatus(err, 404) {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if err := s.store.DeleteConversation(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete cached conversation %s: %w", id, err)
	}

	s.mu.Lock()
	kept := s.history[:0]
	for _, h := range s.history {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	s.history = kept
	history := append([]model.Summary(nil), kept...)
	s.mu.Unlock()
	s.emit(Event{Kind: EventHistory, History: history})

	if current {
		if _, err := s.replace(ctx, model.NewConversation()); err != nil {
			return err
		}
	}
	return nil
}

// RefreshHistory fetches the conversation list. When the backend fails the
// local cache is listed instead and the backend error is returned with it.
func (s *Session) RefreshHistory(ctx context.Context) ([]model.Summary, error) {
	var (
		list   []model.Summary
		result error
	)

	remote, err := s.backend.History(ctx, s.DeviceID(), s.opts.HistoryLimit)
	if err == nil {
		list = make([]model.Summary, 0, len(remote))
		for _, cs := range remote {
			list = append(list, model.SummaryFromBackend(cs))
		}
	} else {
		result = fmt.Errorf("fetch history: %w", err)
		local, localErr := s.store.ListConversations(ctx, s.opts.HistoryLimit)
		if localErr != nil {
			return nil, errors.Join(result, localErr)
		}
		list = local
	}

	s.mu.Lock()
	s.history = list
	s.mu.Unlock()

	s.emit(Event{Kind: EventHistory, History: append([]model.Summary(nil), list...)})
	return list, result
}
