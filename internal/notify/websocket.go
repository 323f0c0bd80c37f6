package notify

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	maxInboundMessage   = 4096
)

// WebSocketConn adapts a gorilla websocket connection to Conn.
type WebSocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func NewWebSocketConn(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketConn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &WebSocketConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *WebSocketConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame on a best-effort basis and closes the socket.
func (c *WebSocketConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// HTTPHandler accepts websocket subscribers and hands them to the hub.
type HTTPHandler struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewHTTPHandler builds the acceptor. An empty allowedOrigins accepts
// same-origin requests only; "*" accepts any origin.
func NewHTTPHandler(hub *Hub, allowedOrigins []string, writeTimeout time.Duration, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPHandler{
		hub:          hub,
		writeTimeout: writeTimeout,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if slices.Contains(allowedOrigins, "*") {
		h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	} else if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}
	return h
}

// Subscribe handles GET /ws/books. The connection stays registered until the
// peer closes it or a write fails.
func (h *HTTPHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	conn := NewWebSocketConn(ws, h.writeTimeout)
	if err := h.hub.Register(conn); err != nil {
		h.logger.WarnContext(r.Context(), "websocket register failed", "error", err)
		return
	}
	defer h.hub.Unregister(conn)

	ws.SetReadLimit(maxInboundMessage)
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.DebugContext(r.Context(), "websocket closed", "error", err)
			}
			return
		}
		h.logger.DebugContext(r.Context(), "websocket message received", "message", string(msg))
	}
}
