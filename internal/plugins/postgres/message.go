package postgres

import (
	"context"
	"database/sql"
	"duet/internal/core/domain"

	"github.com/google/uuid"
)

/*
	-- Messages
	CREATE TABLE messages (
		id            UUID PRIMARY KEY,
		sender_id     UUID NOT NULL REFERENCES users(id),
		recipient_id  UUID NOT NULL REFERENCES users(id),
		body          TEXT NOT NULL,
		seen          BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX messages_conversation_idx
		ON messages (LEAST(sender_id, recipient_id), GREATEST(sender_id, recipient_id), created_at);
*/

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{
		db: db,
	}
}

func (r *MessageRepo) CreateMessage(ctx context.Context, m *domain.Message) error {
	if m.RecipientID == uuid.Nil {
		return domain.ErrInvalidRecipient
	}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.SenderID, m.RecipientID, m.Body).Scan(&m.CreatedAt)
	return err
}

func (r *MessageRepo) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, body, seen, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC
	`, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.RecipientID,
			&m.Body,
			&m.Seen,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) MarkSeen(ctx context.Context, reader, peer uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE recipient_id = $1 AND sender_id = $2 AND seen = FALSE
	`, reader, peer)
	return err
}

func (r *MessageRepo) CountUnseen(ctx context.Context, reader uuid.UUID) (map[uuid.UUID]int, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE recipient_id = $1 AND seen = FALSE
		GROUP BY sender_id
	`, reader)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var sender uuid.UUID
		var n int
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, err
		}
		counts[sender] = n
	}
	return counts, rows.Err()
}
