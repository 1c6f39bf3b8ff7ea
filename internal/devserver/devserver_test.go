// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, responder Responder) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(Options{
		ChunkSize:  5,
		ChunkDelay: -1,
		Responder:  responder,
		Logger:     zaptest.NewLogger(t),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postChat(t *testing.T, ts *httptest.Server, req backend.ChatRequest) (*http.Response, []stream.Event) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	dec := stream.NewDecoder()
	events := dec.Feed(data)
	events = append(events, dec.Flush()...)
	return resp, events
}

func contentText(events []stream.Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.IsText() {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

func TestHandleChat_StreamsProtocol(t *testing.T) {
	srv, ts := newTestServer(t, Fixed(Reply{Thinking: "plan", Answer: "Plant after rain."}))

	resp, events := postChat(t, ts, backend.ChatRequest{Query: "when to plant?", DeviceID: "dev-1", ChatID: "chat-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, NDJSONContentType, resp.Header.Get("Content-Type"))

	require.NotEmpty(t, events)
	assert.Equal(t, stream.KindMetadata, events[0].Kind)
	assert.Equal(t, "chat-1", events[0].ConversationID)

	last := events[len(events)-1]
	assert.Equal(t, stream.KindComplete, last.Kind)
	assert.Equal(t, "chat-1", last.ConversationID)

	assert.Equal(t, "<think>plan</think>Plant after rain.", contentText(events))

	msgs, ok := srv.Store().Messages("dev-1", "chat-1")
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "Plant after rain.", msgs[1].Content)
}

func TestHandleChat_AssignsChatID(t *testing.T) {
	_, ts := newTestServer(t, nil)

	_, events := postChat(t, ts, backend.ChatRequest{Query: "maize spacing", DeviceID: "dev-1"})
	require.NotEmpty(t, events)
	assert.NotEmpty(t, events[0].ConversationID)
}

func TestHandleChat_FailsMidStream(t *testing.T) {
	srv, ts := newTestServer(t, Fixed(Reply{Answer: "0123456789abcdef", FailWith: "model overloaded", FailAfter: 10}))

	_, events := postChat(t, ts, backend.ChatRequest{Query: "q", DeviceID: "dev-1", ChatID: "c"})
	last := events[len(events)-1]
	assert.Equal(t, stream.KindError, last.Kind)
	assert.Equal(t, "model overloaded", last.Message)
	assert.Equal(t, "0123456789", contentText(events))

	msgs, _ := srv.Store().Messages("dev-1", "c")
	assert.Len(t, msgs, 1, "failed answers are not stored")
}

func TestHandleChat_LiteralLines(t *testing.T) {
	_, ts := newTestServer(t, Fixed(Reply{Literal: []string{"not json"}, Answer: "ok"}))

	_, events := postChat(t, ts, backend.ChatRequest{Query: "q", DeviceID: "d"})
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, stream.KindRaw, events[1].Kind)
	assert.Equal(t, "not json", events[1].Text)
}

func TestHandleChat_Validation(t *testing.T) {
	_, ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", "{", "invalid request body"},
		{"blank query", `{"query":"  ","deviceId":"d"}`, "query is required"},
		{"no device", `{"query":"hi"}`, "deviceId is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var er backend.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
			assert.Equal(t, tt.want, er.Error)
		})
	}
}

func TestHandleChat_OtherDevicesChat(t *testing.T) {
	_, ts := newTestServer(t, nil)
	postChat(t, ts, backend.ChatRequest{Query: "soil", DeviceID: "owner", ChatID: "c1"})

	resp, _ := postChat(t, ts, backend.ChatRequest{Query: "soil", DeviceID: "intruder", ChatID: "c1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStore_HistoryOrderAndLimit(t *testing.T) {
	s := NewStore()
	base := s.now()
	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		s.Append("dev", id, backend.Message{Role: "user", Content: "question " + id, Timestamp: ts})
	}
	s.Append("other", "z", backend.Message{Role: "user", Content: "hidden"})

	got := s.History("dev", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ChatID)
	assert.Equal(t, "b", got[1].ChatID)
	assert.Equal(t, "question c", got[0].Title)
	assert.Equal(t, 1, got[0].MessageCount)
}

func TestHistoryAndDeleteEndpoints(t *testing.T) {
	_, ts := newTestServer(t, nil)
	postChat(t, ts, backend.ChatRequest{Query: "tomato spacing", DeviceID: "dev", ChatID: "c1"})

	resp, err := http.Get(ts.URL + "/api/history?deviceId=dev&limit=10")
	require.NoError(t, err)
	var hist backend.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	resp.Body.Close()
	require.Len(t, hist.Chats, 1)
	assert.Equal(t, "tomato spacing", hist.Chats[0].Title)
	assert.Equal(t, 2, hist.Chats[0].MessageCount)

	resp, err = http.Get(ts.URL + "/api/chatById?chatId=c1&deviceId=dev")
	require.NoError(t, err)
	var chat backend.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	resp.Body.Close()
	require.Len(t, chat.Messages, 2)
	assert.Contains(t, chat.Messages[1].Content, "pH")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/chat", strings.NewReader(`{"chatId":"c1","deviceId":"dev"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/chatById?chatId=c1&deviceId=dev")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory_BadLimit(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/history?deviceId=dev&limit=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgronomist_MatchesKeywords(t *testing.T) {
	r := Agronomist{}.Respond("How far apart should I plant MAIZE?", nil)
	assert.Contains(t, r.Answer, "75 cm")
	assert.Contains(t, r.Thinking, "maize")

	r = Agronomist{}.Respond("hello", nil)
	assert.Equal(t, fallbackAnswer, r.Answer)
}

func TestUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
