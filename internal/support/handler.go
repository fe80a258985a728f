package support

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/venu-2604/SupportChat/internal/channel"
)

// WebSocketHandler accepts chat client connections and answers their
// chat_message events through the responder.
type WebSocketHandler struct {
	hub           *Hub
	responder     *Responder
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new websocket handler.
func NewWebSocketHandler(hub *Hub, responder *Responder, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		responder:     responder,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept websocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	connID := uuid.NewString()
	slog.Info("Chat connection accepted", "conn_id", connID, "ip", r.RemoteAddr)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "conn_id", connID)
		}
	}()

	h.hub.Register(connID, ws)
	defer h.hub.Unregister(connID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.writeEvent(ctx, ws, channel.EventConnected, map[string]string{"sid": connID}); err != nil {
		slog.Debug("Failed to send connected greeting", "error", err, "conn_id", connID)
		return
	}

	h.readLoop(ctx, ws, connID)
	slog.Info("Chat connection ended", "conn_id", connID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, connID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Websocket closed by client", "conn_id", connID)
			} else if ctx.Err() == nil {
				slog.Warn("Websocket read error", "error", err, "conn_id", connID)
			}
			return
		}

		var env channel.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("Dropping malformed frame", "error", err, "conn_id", connID)
			continue
		}

		switch env.Event {
		case channel.EventChatMessage:
			var msg channel.ChatMessage
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				slog.Warn("Malformed chat_message payload", "error", err, "conn_id", connID)
				continue
			}
			reply := h.responder.Reply(msg)
			slog.Info("Chat message answered",
				"conn_id", connID,
				"session_id", msg.SessionID,
				"category", msg.Category,
				"is_related_question", msg.IsRelatedQuestion,
			)
			if err := h.writeEvent(ctx, ws, channel.EventBotMessage, reply); err != nil {
				slog.Warn("Failed to send bot message", "error", err, "conn_id", connID)
				return
			}
		case channel.EventPing:
			if err := h.writeEvent(ctx, ws, channel.EventPong, nil); err != nil {
				slog.Debug("Failed to send pong", "error", err, "conn_id", connID)
			}
		default:
			slog.Debug("Ignoring unknown event", "event", env.Event, "conn_id", connID)
		}
	}
}

func (h *WebSocketHandler) writeEvent(ctx context.Context, ws *websocket.Conn, event string, payload any) error {
	frame, err := channel.EncodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, frame)
}
