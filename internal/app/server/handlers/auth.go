package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"duet/internal/core/domain"
	"duet/internal/core/services"
	"duet/internal/platform/logger"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

type credentialsResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - signup - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - signup failed", "email", req.Email, logger.Err(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respondWithToken(w, r, user)
	log.InfoContext(r.Context(), "auth handler - signup success", logger.User(user.ID.String()))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - login - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.WarnContext(r.Context(), "auth handler - login failed", "email", req.Email)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	h.respondWithToken(w, r, user)
	log.InfoContext(r.Context(), "auth handler - login success", logger.User(user.ID.String()))
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, user *domain.User) {
	log := logger.FromContext(r.Context())
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", logger.Err(err))
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(credentialsResponse{
		Token:  token,
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
	})
}
