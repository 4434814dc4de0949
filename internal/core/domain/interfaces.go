package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// ListUsers returns every user except the caller, for the directory.
	ListUsers(ctx context.Context, exclude uuid.UUID) ([]User, error)
	// TouchLastSeen stamps last_seen_at with now; called on disconnect.
	TouchLastSeen(ctx context.Context, id uuid.UUID) error
}

// MessageRepository handles durable message persistence and the
// pull-based history reads.
type MessageRepository interface {
	// CreateMessage inserts the message and fills its assigned created_at.
	CreateMessage(ctx context.Context, m *Message) error
	// ListConversation returns the full exchange between two users,
	// ordered by created_at ascending.
	ListConversation(ctx context.Context, a, b uuid.UUID) ([]Message, error)
	// MarkSeen flags every message from peer to reader as seen.
	MarkSeen(ctx context.Context, reader, peer uuid.UUID) error
	// CountUnseen returns, per peer, how many of their messages the
	// reader has not yet seen.
	CountUnseen(ctx context.Context, reader uuid.UUID) (map[uuid.UUID]int, error)
}
