package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"duet/internal/core/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	tokenSvc := services.NewTokenService("test-secret")
	userID := uuid.NewString()
	token, err := tokenSvc.GenerateToken(userID)
	require.NoError(t, err)

	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(UserIDKey).(string)
		_, _ = w.Write([]byte(id))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, rec.Body.String())
}

func TestAuthMiddlewareQueryFallbackForWebsocketDial(t *testing.T) {
	tokenSvc := services.NewTokenService("test-secret")
	userID := uuid.NewString()
	token, err := tokenSvc.GenerateToken(userID)
	require.NoError(t, err)

	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(UserIDKey).(string)
		_, _ = w.Write([]byte(id))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, rec.Body.String())
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	tokenSvc := services.NewTokenService("test-secret")
	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsForeignToken(t *testing.T) {
	foreign := services.NewTokenService("other-secret")
	token, err := foreign.GenerateToken(uuid.NewString())
	require.NoError(t, err)

	tokenSvc := services.NewTokenService("test-secret")
	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
