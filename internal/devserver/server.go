// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the client's default base URL.
	DefaultAddr = "127.0.0.1:4000"

	// DefaultChunkSize is the number of runes per content event.
	DefaultChunkSize = 6

	// DefaultChunkDelay is the pause between content events.
	DefaultChunkDelay = 40 * time.Millisecond

	// DefaultHistoryLimit applies when /history has no limit parameter.
	DefaultHistoryLimit = 10

	// MaxHistoryLimit caps the limit parameter.
	MaxHistoryLimit = 50

	// MaxRequestBodySize bounds JSON request bodies (64KB).
	MaxRequestBodySize = 64 * 1024

	// NDJSONContentType is the media type of the chat stream.
	NDJSONContentType = "application/x-ndjson"
)

// Options configures a Server.
type Options struct {
	Addr       string
	ChunkSize  int
	ChunkDelay time.Duration
	Responder  Responder
	Logger     *zap.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the development backend.
type Server struct {
	opts   Options
	store  *Store
	router *mux.Router
	server *http.Server
	logger *zap.Logger
}

// New creates a Server. Zero option fields take their defaults; a negative
// ChunkDelay disables delays.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkDelay == 0 {
		opts.ChunkDelay = DefaultChunkDelay
	}
	if opts.Responder == nil {
		opts.Responder = Agronomist{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:   opts,
		store:  NewStore(),
		router: mux.NewRouter(),
		logger: opts.Logger.Named("devserver"),
	}
	s.setupRoutes()
	return s
}

// Store returns the server's conversation store.
func (s *Server) Store() *Store {
	return s.store
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/chat", s.handleDeleteChat).Methods(http.MethodDelete)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/chatById", s.handleChatByID).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the router wrapped in recovery, CORS and access logging.
func (s *Server) Handler() http.Handler {
	accessLog := zap.NewStdLog(s.logger.Named("access")).Writer()

	var h http.Handler = s.router
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.LoggingHandler(accessLog, h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger.Named("panic"))),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("devserver shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// sleepCtx waits for d or until ctx ends. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
