// Package webchat serves the embeddable widget's WebSocket channel. Each
// inbound message runs one synchronous chat turn; the reply goes back on the
// same connection.
package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/aorysoft/leadbot/internal/conversation"
	"github.com/aorysoft/leadbot/pkg/logging"
)

// Handler manages widget WebSocket sessions.
type Handler struct {
	service *conversation.Service
	logger  *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message" or "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type           string   `json:"type"` // "message", "session", "pong", "error"
	Text           string   `json:"text,omitempty"`
	Role           string   `json:"role,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
	AvailableSlots []string `json:"available_slots,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
}

// NewHandler creates a webchat handler.
func NewHandler(service *conversation.Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: conversation service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and serves the session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	if err := websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		h.logger.Warn("webchat: failed to send session frame", "error", err)
		return
	}

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "empty message"})
				continue
			}
			reply := h.service.Respond(r.Context(), sessionID, msg.Text)
			if err := websocket.JSON.Send(conn, OutboundMessage{
				Type:           "message",
				Role:           "assistant",
				Text:           reply.Message,
				AvailableSlots: reply.AvailableSlots,
				SessionID:      sessionID,
				Timestamp:      time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				h.logger.Warn("webchat: failed to send reply", "session_id", sessionID, "error", err)
				return
			}
		default:
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "unknown message type"})
		}
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
