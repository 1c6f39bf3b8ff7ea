// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/reveal"
	"github.com/jeranaias/agrichat/internal/stream"
	"go.uber.org/zap"
)

// ============================================================================
// CHAT STREAM
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	history, _ := s.store.Messages(req.DeviceID, chatID)
	if !s.store.Append(req.DeviceID, chatID, backend.Message{Role: "user", Content: query}) {
		writeError(w, http.StatusForbidden, "chat belongs to another device")
		return
	}

	reply := s.opts.Responder.Respond(query, history)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", NDJSONContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sw := &streamWriter{w: w, flusher: flusher, ctx: r.Context(), size: s.opts.ChunkSize, delay: s.opts.ChunkDelay}
	log := s.logger.With(zap.String("chat_id", chatID))

	if !sw.send(stream.Metadata(chatID)) {
		return
	}
	for _, line := range reply.Literal {
		if !sw.send(stream.Raw(line)) {
			return
		}
	}
	if reply.Thinking != "" {
		if !sw.content(reveal.DefaultStartMarker + reply.Thinking + reveal.DefaultEndMarker) {
			log.Debug("client left during thinking")
			return
		}
	}

	if reply.FailWith != "" {
		answer := []rune(reply.Answer)
		n := min(max(reply.FailAfter, 0), len(answer))
		if sw.content(string(answer[:n])) {
			sw.send(stream.Error(reply.FailWith))
		}
		log.Info("stream failed on purpose", zap.String("message", reply.FailWith))
		return
	}

	if !sw.content(reply.Answer) {
		log.Debug("client left during answer")
		return
	}
	s.store.Append(req.DeviceID, chatID, backend.Message{Role: "assistant", Content: reply.Answer})
	sw.send(stream.Complete(chatID))

	log.Info("stream complete", zap.Int("answer_runes", len([]rune(reply.Answer))))
}

// streamWriter writes NDJSON events, flushing each one.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	size    int
	delay   time.Duration
}

func (sw *streamWriter) send(ev stream.Event) bool {
	line, err := stream.Encode(ev)
	if err != nil {
		return false
	}
	if _, err := sw.w.Write(line); err != nil {
		return false
	}
	sw.flusher.Flush()
	return sw.ctx.Err() == nil
}

// content sends text as a series of content events of sw.size runes.
func (sw *streamWriter) content(text string) bool {
	runes := []rune(text)
	for len(runes) > 0 {
		n := min(sw.size, len(runes))
		if !sw.send(stream.Content(string(runes[:n]))) {
			return false
		}
		runes = runes[n:]
		if !sleepCtx(sw.ctx, sw.delay) {
			return false
		}
	}
	return true
}

// ============================================================================
// CONVERSATIONS
// ============================================================================

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	chats := s.store.History(deviceID, limit)
	if chats == nil {
		chats = []backend.ChatSummary{}
	}
	writeJSON(w, http.StatusOK, backend.HistoryResponse{Chats: chats})
}

// handleChatByID handles GET /api/chatById.
func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chatID, deviceID := q.Get("chatId"), q.Get("deviceId")
	if chatID == "" || deviceID == "" {
		writeError(w, http.StatusBadRequest, "chatId and deviceId are required")
		return
	}

	messages, ok := s.store.Messages(deviceID, chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	writeJSON(w, http.StatusOK, backend.ChatResponse{ChatID: chatID, Messages: messages})
}

// handleDeleteChat handles DELETE /api/chat.
func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req backend.DeleteChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == "" || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "chatId and deviceId are required")
		return
	}

	if !s.store.Delete(req.DeviceID, req.ChatID) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	s.logger.Info("chat deleted", zap.String("chat_id", req.ChatID))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"chats":  s.store.Len(),
	})
}
