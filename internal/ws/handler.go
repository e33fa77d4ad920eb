package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/chat-app/services/realtime-service/internal/apperr"
	"github.com/yourorg/chat-app/services/realtime-service/internal/auth"
	"github.com/yourorg/chat-app/services/realtime-service/internal/chat"
	"github.com/yourorg/chat-app/services/realtime-service/internal/presence"
)

const (
	// TypeError is the frame type for rejected inbound events.
	TypeError = "error"
	// TypeResult is the frame type carrying a handler's success payload.
	TypeResult = "result"
)

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Handler upgrades connections, authenticates them, and pumps envelopes into
// the dispatcher.
type Handler struct {
	dispatcher *chat.Dispatcher
	presence   *presence.Store // nil disables the Redis mirror
	jwtSecret  string
	logger     *zap.SugaredLogger

	pingInterval  time.Duration
	writeDeadline time.Duration
	pongWait      time.Duration
	maxMsgSize    int64
	sendBuffer    int
}

type HandlerConfig struct {
	JWTSecret     string
	PingInterval  time.Duration
	WriteDeadline time.Duration
	PongWait      time.Duration
	MaxMsgSize    int64
	SendBuffer    int
}

func NewHandler(d *chat.Dispatcher, p *presence.Store, cfg HandlerConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		dispatcher:    d,
		presence:      p,
		jwtSecret:     cfg.JWTSecret,
		logger:        logger,
		pingInterval:  cfg.PingInterval,
		writeDeadline: cfg.WriteDeadline,
		pongWait:      cfg.PongWait,
		maxMsgSize:    cfg.MaxMsgSize,
		sendBuffer:    cfg.SendBuffer,
	}
}

// extractToken prefers the query token and falls back to an Authorization
// bearer header.
func extractToken(query, header string) (string, error) {
	if query != "" {
		return query, nil
	}
	return auth.ParseBearerToken(header)
}

// Serve handles one upgraded connection: /ws?token=<jwt>, or a Bearer token
// in the Authorization header. It blocks until the socket closes.
func (h *Handler) Serve(conn *websocket.Conn) {
	token, err := extractToken(conn.Query("token"), conn.Headers("Authorization"))
	if err != nil {
		h.reject(conn, "missing token")
		return
	}
	claims, err := auth.ParseAndValidateToken(h.jwtSecret, token)
	if err != nil {
		h.reject(conn, "invalid token")
		return
	}
	userID := claims.UserID

	client := newClient(uuid.New().String(), userID, conn, h.sendBuffer, h.logger)
	h.dispatcher.OnConnect(userID, client)
	if h.presence != nil {
		if err := h.presence.MarkOnline(context.Background(), userID); err != nil {
			h.logger.Warnw("presence mark online failed", "user", userID, "err", err)
		}
	}

	go client.writePump(h.pingInterval, h.writeDeadline)
	h.readPump(client)

	h.dispatcher.OnDisconnect(client.ID())
	if h.presence != nil {
		if err := h.presence.MarkOffline(context.Background(), userID); err != nil {
			h.logger.Warnw("presence mark offline failed", "user", userID, "err", err)
		}
	}
	client.close()
}

func (h *Handler) readPump(client *Client) {
	conn := client.conn
	conn.SetReadLimit(h.maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env chat.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			client.Send(TypeError, errorPayload{Kind: "bad_request", Message: "malformed envelope"})
			continue
		}

		result, err := h.dispatcher.Handle(context.Background(), client.ID(), env)
		if err != nil {
			kind := apperr.KindOf(err)
			if kind == "" {
				kind = "bad_request"
			}
			client.Send(TypeError, errorPayload{Kind: string(kind), Message: err.Error()})
			continue
		}
		if result != nil {
			client.Send(TypeResult, result)
		}
	}
}

func (h *Handler) reject(conn *websocket.Conn, reason string) {
	b, _ := json.Marshal(frame{Type: TypeError, Payload: errorPayload{Kind: "unauthorized", Message: reason}})
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.Close()
}
