package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePresence = "presence"
	TypeMessage  = "message"
	TypeAck      = "ack"
	TypeError    = "error"
)

type AckStatus string

const (
	AckServerReceived AckStatus = "server_received"
	AckPersisted      AckStatus = "persisted"
)

// PresenceEvent carries the full online roster, not a delta, so a client
// that missed an earlier event still converges on the next one.
type PresenceEvent struct {
	Type   string   `json:"type"` // "presence"
	Online []string `json:"online_user_ids"`
}

// MessageEvent is pushed to the recipient's connection after the message
// is durably persisted.
type MessageEvent struct {
	Type        string    `json:"type"` // "message"
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboundSend is what a client writes on its websocket to send a message.
type InboundSend struct {
	ClientMsgID string `json:"client_msg_id"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

// MessagePayload travels through the ingest stream between accept and persist.
type MessagePayload struct {
	ClientMsgID string    `json:"client_msg_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// AckEvent is sent ONLY to the sender.
type AckEvent struct {
	Type        string    `json:"type"` // always "ack"
	ClientMsgID string    `json:"client_msg_id"`
	Status      AckStatus `json:"status"`
	MessageID   string    `json:"message_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorEvent is a WS-safe error.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewMessageEvent(m *Message) MessageEvent {
	return MessageEvent{
		Type:        TypeMessage,
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}
