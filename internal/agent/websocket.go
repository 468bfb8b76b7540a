package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/identity"
)

// ConnManager tracks the live chat websocket of each session. A session has
// at most one; a newer connection replaces the older one.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
	logger *slog.Logger
}

// NewConnManager creates an empty connection manager.
func NewConnManager(logger *slog.Logger) *ConnManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnManager{
		active: make(map[string]*websocket.Conn),
		logger: logger,
	}
}

// Get returns the active connection for a session.
func (m *ConnManager) Get(sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Register makes conn the session's connection, closing any previous one.
func (m *ConnManager) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	m.active[sessionID] = conn
	m.logger.Info("Chat websocket registered", "session_id", sessionID)
}

// Unregister removes conn if it is still the session's connection.
func (m *ConnManager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[sessionID]; ok && current == conn {
		delete(m.active, sessionID)
		m.logger.Info("Chat websocket unregistered", "session_id", sessionID)
	}
}

// CloseSession closes the session's connection, if any.
func (m *ConnManager) CloseSession(sessionID string) {
	m.mu.Lock()
	conn, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "session expired")
		m.logger.Info("Chat websocket closed", "session_id", sessionID)
	}
}

// CloseAll closes every connection, for shutdown.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := m.active
	m.active = make(map[string]*websocket.Conn)
	m.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// Len is the number of live connections.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// wsInbound is a client frame: a chat message or a ping.
type wsInbound struct {
	Type string `json:"type"`
	domain.ChatRequest
}

// wsFrame carries one stream event, shaped like the SSE event of the same
// name.
type wsFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// HandleWebSocket handles GET /ws/chat. Each inbound {"type":"chat"} frame
// is answered with fire_season, text, and complete frames.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	h.logger.Info("Chat websocket request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept websocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(h.maxBody)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.conns.Register(sessionID, ws)
	defer h.conns.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, ws, sessionID)
	}()

	h.readLoop(ctx, r, ws, sessionID)
	cancel()
	wg.Wait()
	h.logger.Info("Chat websocket ended", "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.origin == "*" {
		return true
	}
	if origin == strings.TrimRight(h.origin, "/") {
		return true
	}
	h.logger.Warn("Websocket origin rejected", "origin", origin, "allowed", h.origin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, r *http.Request, ws *websocket.Conn, sessionID string) {
	reqID := chiMiddleware.GetReqID(r.Context())
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				h.logger.Debug("Websocket closed", "session_id", sessionID)
			} else {
				h.logger.Warn("Websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.writeFrame(ctx, ws, eventError, map[string]string{"error": errInvalidBody.Error()}); err != nil {
				return
			}
			continue
		}

		switch msg.Type {
		case eventPing:
			if err := h.writeFrame(ctx, ws, "pong", nil); err != nil {
				return
			}
		case "chat", "":
			if err := h.answer(ctx, r, ws, sessionID, reqID, msg.ChatRequest); err != nil {
				h.logger.Debug("Websocket write failed", "error", err, "session_id", sessionID)
				return
			}
		default:
			if err := h.writeFrame(ctx, ws, eventError, map[string]string{"error": "unknown message type"}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) answer(ctx context.Context, r *http.Request, ws *websocket.Conn, sessionID, reqID string, req domain.ChatRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return h.writeFrame(ctx, ws, eventError, map[string]string{"error": errEmptyMessage.Error()})
	}
	if !h.admit(r, sessionID, channelWS, req) {
		return h.writeFrame(ctx, ws, eventError, map[string]string{"error": "rate limit exceeded"})
	}

	resp := h.process(ctx, sessionID, req)
	chunks := 0
	for ev := range events(resp, h.chunkSize) {
		if err := h.writeFrame(ctx, ws, ev.name, ev.data); err != nil {
			h.logAssistantMessage(sessionID, channelWS, reqID, resp, chunks, true)
			return err
		}
		if ev.name == eventText {
			chunks++
		}
	}
	h.logAssistantMessage(sessionID, channelWS, reqID, resp, chunks, false)
	return nil
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, name string, data any) error {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, ws, wsFrame{Type: name, Data: data})
}

// pingLoop keeps idle connections alive through proxies.
func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.keepalive)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				h.logger.Debug("Websocket ping failed", "error", err, "session_id", sessionID)
				_ = ws.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
