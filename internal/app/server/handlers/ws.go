package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"duet/internal/app/server/ws"
	"duet/internal/core/domain"
	"duet/internal/core/services"
	"duet/internal/platform/logger"
	"duet/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	presence *services.PresenceService
	messages *services.MessageService
}

func NewWSHandler(p *services.PresenceService, m *services.MessageService) *WSHandler {
	return &WSHandler{
		presence: p,
		messages: m,
	}
}

// Handler drives one connection through its whole lifecycle: handshake
// validation, registration, heartbeat, read loop, deregistration.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	// The identity claim arrives via the auth middleware; an empty claim is
	// handled below by the lifecycle handler, which refuses the connection.
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	span.SetAttributes(attribute.String("user.id", userID))

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", logger.Err(err))
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", logger.User(userID))
		cancel()
		return nil
	})
	sock := ws.NewWebSocket(ctx, conn)

	connID := uuid.NewString()
	client := ws.NewClient(ctx, sock, userID, connID)
	state, err := s.presence.HandleConnect(ctx, client)
	if err != nil || state != domain.StateRegistered {
		log.WarnContext(r.Context(), "ws handler - connection refused", logger.Conn(connID), logger.Err(err))
		cancel()
		return
	}
	span.SetAttributes(attribute.String("conn.id", connID))
	log.InfoContext(r.Context(), "ws handler - connection established", logger.User(userID), logger.Conn(connID))
	defer func() {
		state = s.presence.HandleDisconnect(sessionCtx, state, client)
		cancel()
	}()

	// Heartbeat keeps the redis mirror fresh while the connection lives
	go s.presence.HandleHeartbeat(ctx, userID)

	// Read loop: inbound frames are message sends
	sock.ReadLoop(func(data []byte) {
		go func(raw []byte) {
			if err := s.messages.Accept(ctx, userID, raw); err != nil {
				log.WarnContext(ctx, "ws handler - inbound frame rejected", logger.User(userID), logger.Err(err))
				ev, _ := json.Marshal(domain.ErrorEvent{
					Type:    domain.TypeError,
					Code:    "rejected",
					Message: err.Error(),
				})
				_ = client.Send(ctx, ev)
			}
		}(data)
	})
}
