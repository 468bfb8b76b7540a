// Package agent serves the conversational endpoints: one-shot JSON chat,
// server-sent event streaming and websocket chat. Every transport routes the
// message through the session's orchestrator and returns the same response.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/vigil/internal/config"
	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/identity"
	"github.com/ashureev/vigil/internal/orchestrator"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Conversation log channels.
const (
	channelHTTP = "chat_http"
	channelSSE  = "chat_sse"
	channelWS   = "chat_ws"
)

// Stream event names shared by SSE and websocket clients.
const (
	eventFireSeason = "fire_season"
	eventText       = "text"
	eventComplete   = "complete"
	eventError      = "error"
	eventPing       = "ping"
)

var (
	errEmptyMessage = errors.New("message is required")
	errBodyTooLarge = errors.New("request body too large")
	errInvalidBody  = errors.New("invalid request body")
)

// TextChunk is one slice of the narrative on a stream.
type TextChunk struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done"`
}

// Complete closes a stream with everything but the narrative.
type Complete struct {
	Agent         string                   `json:"agent"`
	Persona       domain.PersonaDescriptor `json:"persona"`
	Data          any                      `json:"data"`
	Sources       []string                 `json:"sources"`
	Intent        domain.Intent            `json:"intent"`
	Visualization string                   `json:"visualization,omitempty"`
	AlertLevel    string                   `json:"alert_level,omitempty"`
	Done          bool                     `json:"done"`
}

type streamEvent struct {
	name string
	data any
}

// events yields the stream for a finished response: the countdown, the
// narrative in chunks, then the completion record.
func events(resp domain.AgentResponse, chunkSize int) iter.Seq[streamEvent] {
	return func(yield func(streamEvent) bool) {
		if !yield(streamEvent{eventFireSeason, resp.FireSeason}) {
			return
		}
		for chunk := range orchestrator.Chunks(resp.Narrative, chunkSize) {
			if !yield(streamEvent{eventText, TextChunk{Chunk: chunk}}) {
				return
			}
		}
		yield(streamEvent{eventComplete, Complete{
			Agent:         resp.AgentName,
			Persona:       resp.Persona,
			Data:          resp.StructuredData,
			Sources:       resp.Sources,
			Intent:        resp.Intent,
			Visualization: resp.VisualizationHint,
			AlertLevel:    resp.AlertLevel,
			Done:          true,
		}})
	}
}

// Handler serves the chat transports.
type Handler struct {
	sessions  *orchestrator.Registry
	limiter   *RateLimiter
	conns     *ConnManager
	log       ConversationLogger
	logger    *slog.Logger
	chunkSize int
	maxBody   int64
	keepalive time.Duration
	origin    string
	isDev     bool
}

// NewHandler creates the chat handler. cfg may be nil, in which case
// defaults apply. Session cleanup in the registry also drops the session's
// rate limiter and closes its websocket.
func NewHandler(sessions *orchestrator.Registry, conversationLogger ConversationLogger, cfg *config.Config, logger *slog.Logger) *Handler {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	rps, burst := 2.0, 10
	h := &Handler{
		sessions:  sessions,
		conns:     NewConnManager(logger),
		log:       conversationLogger,
		logger:    logger,
		chunkSize: orchestrator.DefaultChunkSize,
		maxBody:   defaultMaxRequestBodySize,
		keepalive: 10 * time.Second,
		isDev:     true,
	}
	idle := time.Hour
	if cfg != nil {
		rps, burst = cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst
		h.chunkSize = cfg.Stream.ChunkSize
		h.maxBody = cfg.Stream.MaxRequestBodySize
		h.keepalive = cfg.Stream.KeepaliveInterval
		h.origin = cfg.FrontendURL
		h.isDev = cfg.IsDevelopment()
		idle = cfg.SessionTTL
	}
	h.limiter = NewRateLimiter(rps, burst, idle)

	sessions.OnCleanup(h.limiter.Forget)
	sessions.OnCleanup(h.conns.CloseSession)
	return h
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	r.Post("/api/chat/stream", h.HandleChatStream)
	r.Get("/ws/chat", h.HandleWebSocket)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.limiter.Stop()
	h.conns.CloseAll()
	if err := h.log.Close(); err != nil {
		h.logger.Warn("failed to close conversation logger", "error", err)
	}
}

// decodeChat reads and validates a chat body.
func (h *Handler) decodeChat(w http.ResponseWriter, r *http.Request) (domain.ChatRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, errBodyTooLarge
		}
		return req, errInvalidBody
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, errEmptyMessage
	}
	return req, nil
}

func writeRequestError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSONError(w, status, err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// admit applies the per-session rate limit and logs the inbound message.
func (h *Handler) admit(r *http.Request, sessionID, channel string, req domain.ChatRequest) bool {
	if !h.limiter.Allow(sessionID) {
		h.logger.Warn("Chat rate limit exceeded", "session_id", sessionID, "channel", channel)
		return false
	}
	h.logger.Info("Chat request",
		"session_id", sessionID,
		"channel", channel,
		"persona", req.Persona,
		"message_length", len(req.Message),
	)
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: req.Message,
		Content:    cleanForReadability(req.Message),
		Meta: map[string]any{
			"request_id": chiMiddleware.GetReqID(r.Context()),
			"persona":    req.Persona,
		},
	})
	return true
}

func (h *Handler) logAssistantMessage(sessionID, channel, requestID string, resp domain.AgentResponse, streamChunks int, partial bool) {
	h.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: resp.Narrative,
		Content:    cleanForReadability(resp.Narrative),
		Meta: map[string]any{
			"intent":        resp.Intent,
			"agent":         resp.AgentName,
			"persona":       resp.Persona.ID,
			"stream_chunks": streamChunks,
			"partial":       partial,
			"request_id":    requestID,
		},
	})
}

// HandleChat handles POST /api/chat and returns the full response as JSON.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	req, err := h.decodeChat(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if !h.admit(r, sessionID, channelHTTP, req) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	resp := h.sessions.Get(sessionID).ProcessMessage(r.Context(), req)
	h.logAssistantMessage(sessionID, channelHTTP, chiMiddleware.GetReqID(r.Context()), resp, 0, false)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("failed to write chat response", "error", err, "session_id", sessionID)
	}
}

// HandleChatStream handles POST /api/chat/stream. While the orchestrator
// works the client receives keepalive pings; the answer then arrives as
// fire_season, text chunks and a final complete event.
//
//nolint:gocyclo // Stream lifecycle branches are kept inline to preserve request flow.
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	reqID := chiMiddleware.GetReqID(r.Context())
	req, err := h.decodeChat(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if !h.admit(r, sessionID, channelSSE, req) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	result := make(chan domain.AgentResponse, 1)
	orch := h.sessions.Get(sessionID)
	go func() {
		result <- orch.ProcessMessage(r.Context(), req)
	}()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	var resp domain.AgentResponse
wait:
	for {
		select {
		case resp = <-result:
			break wait
		case <-keepalive.C:
			if err := writeSSE(w, eventPing, `{"status":"alive"}`); err != nil {
				h.logger.Warn("failed to write SSE keepalive ping", "error", err, "session_id", sessionID)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			h.logger.Info("Chat stream disconnected", "session_id", sessionID)
			return
		}
	}

	chunks := 0
	for ev := range events(resp, h.chunkSize) {
		data, err := json.Marshal(ev.data)
		if err != nil {
			h.logger.Warn("failed to marshal stream event", "event", ev.name, "error", err)
			if writeErr := writeSSE(w, eventError, `{"error":"failed to serialize response"}`); writeErr != nil {
				h.logger.Warn("failed to write SSE error event", "error", writeErr)
			}
			flusher.Flush()
			h.logAssistantMessage(sessionID, channelSSE, reqID, resp, chunks, true)
			return
		}
		if err := writeSSE(w, ev.name, string(data)); err != nil {
			h.logger.Warn("failed to write SSE event", "event", ev.name, "error", err)
			h.logAssistantMessage(sessionID, channelSSE, reqID, resp, chunks, true)
			return
		}
		flusher.Flush()
		if ev.name == eventText {
			chunks++
		}
	}
	h.logAssistantMessage(sessionID, channelSSE, reqID, resp, chunks, false)
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// process runs one message for a session outside an HTTP request, as the
// websocket loop does.
func (h *Handler) process(ctx context.Context, sessionID string, req domain.ChatRequest) domain.AgentResponse {
	return h.sessions.Get(sessionID).ProcessMessage(ctx, req)
}
