// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/agrichat/internal/stream"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the local backend address.
const DefaultBaseURL = "http://127.0.0.1:4000/api"

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the API root, without a trailing slash (default: DefaultBaseURL).
	BaseURL string

	// Timeout for non-streaming requests (default: 15s).
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 1).
	Burst int

	// ReadSize is the buffer size for each streamed read (default: stream.DefaultReadSize).
	ReadSize int

	// UserAgent is sent with every request.
	UserAgent string

	// Logger receives request logs (default: no-op).
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 2,
		Burst:             1,
		ReadSize:          stream.DefaultReadSize,
		UserAgent:         "agrichat",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the support backend. It is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = stream.DefaultReadSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "agrichat"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// Streaming bodies outlive any fixed timeout; the caller's context bounds them.
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(limit, cfg.Burst),
		logger:       cfg.Logger.Named("backend"),
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Ping verifies that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream posts a query and hands every read of the response body to
// onDelivery, in order, on the calling goroutine. It returns nil when the
// body ends normally. Connection failures, failing statuses and read errors
// are returned as *ClientError.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onDelivery stream.DeliveryFunc) error {
	resp, err := c.do(ctx, c.streamClient, http.MethodPost, "/chat", nil, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("chat stream opened",
		zap.String("chat_id", req.ChatID),
		zap.String("content_type", resp.Header.Get("Content-Type")))

	reader := stream.NewReader(resp.Body, c.config.ReadSize)
	if err := reader.Process(ctx, onDelivery); err != nil {
		return transportError(ctx, "stream read failed", err)
	}

	c.logger.Debug("chat stream closed",
		zap.String("chat_id", req.ChatID),
		zap.Int64("bytes", reader.BytesRead()))
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// History lists the device's most recent conversations.
func (c *Client) History(ctx context.Context, deviceID string, limit int) ([]ChatSummary, error) {
	q := url.Values{}
	q.Set("deviceId", deviceID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result HistoryResponse
	if err := c.getJSON(ctx, "/history", q, &result); err != nil {
		return nil, err
	}
	return result.Chats, nil
}

// ChatByID fetches the messages of one conversation.
func (c *Client) ChatByID(ctx context.Context, chatID, deviceID string) ([]Message, error) {
	q := url.Values{}
	q.Set("chatId", chatID)
	q.Set("deviceId", deviceID)

	var result ChatResponse
	if err := c.getJSON(ctx, "/chatById", q, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// DeleteChat removes a conversation.
func (c *Client) DeleteChat(ctx context.Context, chatID, deviceID string) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodDelete, "/chat", nil, DeleteChatRequest{
		ChatID:   chatID,
		DeviceID: deviceID,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode " + path + " response", Cause: err}
	}
	return nil
}

// do waits for the limiter, sends the request and checks the status. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(ctx, "request not sent", err)
	}

	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, transportError(ctx, method+" "+path+" failed", err)
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(method, path, resp)
	}
	return resp, nil
}

// statusError builds a status error, preferring the backend's {"error": ...} text.
func statusError(method, path string, resp *http.Response) error {
	msg := method + " " + path + " failed"
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var er ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	return &ClientError{Type: ErrTypeStatus, Status: resp.StatusCode, Message: msg}
}
