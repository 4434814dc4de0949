package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"duet/internal/app/registry"
	"duet/internal/app/server/handlers"
	"duet/internal/core/services"
	"duet/pkg/middleware"
)

type Server struct {
	mux         *http.ServeMux
	log         *slog.Logger
	name        string
	addr        string
	authHandler *handlers.AuthHandler
	chatHandler *handlers.ChatHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
	hub         *registry.Hub
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	presenceSvc *services.PresenceService,
	messageSvc *services.MessageService,
	hub *registry.Hub,
) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		log:         log,
		name:        name,
		addr:        addr,
		authHandler: handlers.NewAuthHandler(userSvc, tokenSvc),
		chatHandler: handlers.NewChatHandler(userSvc, presenceSvc, messageSvc),
		wsHandler:   handlers.NewWSHandler(presenceSvc, messageSvc),
		tokenSvc:    tokenSvc,
		hub:         hub,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public routes
	s.mux.HandleFunc("POST /auth/signup", s.authHandler.Signup)
	s.mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	s.mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"online": len(s.hub.SnapshotKeys()),
		})
	})

	// Protected routes
	s.mux.Handle("GET /api/users", auth(http.HandlerFunc(s.chatHandler.ListUsers)))
	s.mux.Handle("GET /api/messages/{userID}", auth(http.HandlerFunc(s.chatHandler.History)))
	s.mux.Handle("PUT /api/messages/seen/{userID}", auth(http.HandlerFunc(s.chatHandler.MarkSeen)))
	s.mux.Handle("POST /api/messages/{userID}", auth(http.HandlerFunc(s.chatHandler.Send)))

	// The middleware extracts the 'sub' (user id) from the JWT and puts it
	// in Context before the handshake runs.
	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
}

func (s *Server) Start() error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.name)(s.mux),
	)
	server := &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
