package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"duet/internal/core/domain"
	"duet/internal/core/services"
	"duet/internal/platform/logger"
	"duet/pkg/middleware"

	"github.com/google/uuid"
)

// ChatHandler serves the CRUD side of the application: the user directory
// and the message history/send endpoints backed by the persistence layer.
type ChatHandler struct {
	userSvc     *services.UserService
	presenceSvc *services.PresenceService
	messageSvc  *services.MessageService
}

func NewChatHandler(
	u *services.UserService,
	p *services.PresenceService,
	m *services.MessageService,
) *ChatHandler {
	return &ChatHandler{userSvc: u, presenceSvc: p, messageSvc: m}
}

type userEntry struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Online   bool       `json:"online"`
	Unseen   int        `json:"unseen"`
	LastSeen *time.Time `json:"last_seen_at,omitempty"`
}

type messageEntry struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	Seen        bool      `json:"seen"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMessageEntry(m domain.Message) messageEntry {
	return messageEntry{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Body:        m.Body,
		Seen:        m.Seen,
		CreatedAt:   m.CreatedAt,
	}
}

// ListUsers returns the directory with the online flag from the registry
// and per-peer unseen counts.
func (h *ChatHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	callerID, ok := callerUUID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	users, err := h.userSvc.Directory(r.Context(), callerID)
	if err != nil {
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	unseen, err := h.messageSvc.UnseenCounts(r.Context(), callerID)
	if err != nil {
		log.WarnContext(r.Context(), "chat handler - list users - unseen counts failed", logger.Err(err))
		unseen = map[uuid.UUID]int{}
	}
	out := make([]userEntry, 0, len(users))
	for _, u := range users {
		out = append(out, userEntry{
			ID:       u.ID.String(),
			Email:    u.Email,
			Name:     u.Name,
			Online:   h.presenceSvc.IsOnline(u.ID.String()),
			Unseen:   unseen[u.ID],
			LastSeen: u.LastSeenAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// History returns the conversation with the peer and marks their messages
// seen; this read is also the pull-based fallback for missed realtime
// deliveries.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerUUID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	msgs, err := h.messageSvc.History(r.Context(), callerID, peerID)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	out := make([]messageEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageEntry(m))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *ChatHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerUUID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.messageSvc.MarkSeen(r.Context(), callerID, peerID); err != nil {
		http.Error(w, "failed to mark seen", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send persists the message and dispatches it to the recipient's live
// connection when one exists.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	callerID, ok := callerUUID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	recipientID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	msg, err := h.messageSvc.Send(r.Context(), callerID, recipientID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage),
			errors.Is(err, domain.ErrInvalidRecipient),
			errors.Is(err, domain.ErrSelfMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.ErrorContext(r.Context(), "chat handler - send failed", logger.Recipient(recipientID.String()), logger.Err(err))
			http.Error(w, "failed to send message", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toMessageEntry(*msg))
}

func callerUUID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
