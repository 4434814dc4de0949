package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the persistent identity created at signup.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	LastSeenAt   *time.Time // Nullable, updated on disconnect
}

func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// Message is a persisted chat entry between exactly two users.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Body        string
	Seen        bool
	CreatedAt   time.Time
}

// ConnState tracks a single websocket connection through its lifecycle.
// Transitions: Connecting -> Registered -> Closed, or Connecting -> Closed
// when the handshake carries no identity.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateRegistered
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
