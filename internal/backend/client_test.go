// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/devserver"
	"github.com/jeranaias/agrichat/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newClient(t *testing.T, url string) *backend.Client {
	t.Helper()
	return backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL: url,
		Timeout: 5 * time.Second,
		Logger:  zaptest.NewLogger(t),
	})
}

func startDevserver(t *testing.T, responder devserver.Responder) (*devserver.Server, *backend.Client) {
	t.Helper()
	srv := devserver.New(devserver.Options{
		ChunkSize:  4,
		ChunkDelay: -1,
		Responder:  responder,
		Logger:     zaptest.NewLogger(t),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, newClient(t, ts.URL+"/api")
}

// collect gathers every delivery and decodes the whole stream.
type collect struct {
	mu         sync.Mutex
	deliveries int
	dec        *stream.Decoder
	events     []stream.Event
}

func newCollect() *collect {
	return &collect{dec: stream.NewDecoder()}
}

func (c *collect) deliver(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries++
	c.events = append(c.events, c.dec.Feed(p)...)
}

func (c *collect) text() string {
	var sb strings.Builder
	for _, ev := range append(c.events, c.dec.Flush()...) {
		if ev.IsText() {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

// =============================================================================
// STREAMING
// =============================================================================

func TestChatStream_DeliversBody(t *testing.T) {
	_, client := startDevserver(t, devserver.Fixed(devserver.Reply{Thinking: "hmm", Answer: "Use drip lines."}))

	c := newCollect()
	err := client.ChatStream(context.Background(), backend.ChatRequest{
		Query: "water?", DeviceID: "dev", ChatID: "c1",
	}, c.deliver)
	require.NoError(t, err)

	assert.Greater(t, c.deliveries, 0)
	assert.Equal(t, "<think>hmm</think>Use drip lines.", c.text())
	require.NotEmpty(t, c.events)
	assert.Equal(t, stream.KindMetadata, c.events[0].Kind)
	assert.Equal(t, stream.KindComplete, c.events[len(c.events)-1].Kind)
}

func TestChatStream_StatusError(t *testing.T) {
	_, client := startDevserver(t, nil)

	err := client.ChatStream(context.Background(), backend.ChatRequest{Query: " ", DeviceID: "dev"}, func([]byte) {})
	require.Error(t, err)
	assert.True(t, backend.IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "query is required")
}

func TestChatStream_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := newClient(t, url)
	err := client.ChatStream(context.Background(), backend.ChatRequest{Query: "q", DeviceID: "d"}, func([]byte) {})
	require.Error(t, err)

	var ce *backend.ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, backend.ErrTypeConnection, ce.Type)
	assert.ErrorIs(t, err, backend.ErrUnavailable)
}

func TestChatStream_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	client := newClient(t, ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.ChatStream(ctx, backend.ChatRequest{Query: "q", DeviceID: "d"}, func([]byte) {})
	require.Error(t, err)
	assert.True(t, backend.IsTimeout(err))
	assert.ErrorIs(t, err, backend.ErrTimeout)
}

func TestChatStream_Canceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"type":"content","data":"partial"}` + "\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	client := newClient(t, ts.URL)
	ctx, cancel := context.WithCancel(context.Background())

	err := client.ChatStream(ctx, backend.ChatRequest{Query: "q", DeviceID: "d"}, func([]byte) { cancel() })
	require.Error(t, err)
	assert.True(t, backend.IsCanceled(err))
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestHistoryChatByIDDelete(t *testing.T) {
	srv, client := startDevserver(t, nil)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		err := client.ChatStream(ctx, backend.ChatRequest{Query: "maize " + id, DeviceID: "dev", ChatID: id}, func([]byte) {})
		require.NoError(t, err)
	}
	require.Equal(t, 2, srv.Store().Len())

	chats, err := client.History(ctx, "dev", 10)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	for _, c := range chats {
		assert.Equal(t, 2, c.MessageCount)
	}

	msgs, err := client.ChatByID(ctx, "c1", "dev")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "maize c1", msgs[0].Content)

	require.NoError(t, client.DeleteChat(ctx, "c1", "dev"))

	_, err = client.ChatByID(ctx, "c1", "dev")
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.True(t, backend.IsStatus(err, http.StatusNotFound))

	err = client.DeleteChat(ctx, "c1", "dev")
	assert.True(t, backend.IsStatus(err, 0))
}

func TestHistory_InvalidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL).History(context.Background(), "dev", 10)
	var ce *backend.ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, backend.ErrTypeInvalidResponse, ce.Type)
}

func TestHistory_QueryParameters(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RequestURI()
		_, _ = w.Write([]byte(`{"chats":[]}`))
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL+"/").History(context.Background(), "dev 1", 10)
	require.NoError(t, err)
	assert.Equal(t, "/history?deviceId=dev+1&limit=10", got)
}

func TestPing(t *testing.T) {
	_, client := startDevserver(t, nil)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestRateLimiterPacesRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chats":[]}`))
	}))
	defer ts.Close()

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:           ts.URL,
		RequestsPerSecond: 20,
		Burst:             1,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.History(context.Background(), "dev", 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClientError_Is(t *testing.T) {
	err := &backend.ClientError{Type: backend.ErrTypeStatus, Status: 404, Message: "chat not found"}
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.NotErrorIs(t, err, backend.ErrTimeout)
	assert.Equal(t, "chat not found (HTTP 404)", err.Error())
	assert.Equal(t, "status", backend.ErrTypeStatus.String())
}
