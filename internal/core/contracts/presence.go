package contracts

import (
	"context"
	"time"
)

// PresenceMirror keeps an observational copy of liveness in Redis, using a
// single ZSET scored by last check-in. The in-process Registry stays the
// source of truth for delivery decisions; the mirror survives restarts and
// feeds "last seen" reads.
type PresenceMirror interface {
	// MarkOnline refreshes the TTL-based check-in for userID.
	MarkOnline(ctx context.Context, userID string, ttl time.Duration) error
	// MarkOffline drops userID from the mirror immediately.
	MarkOffline(ctx context.Context, userID string) error
	// OnlineUsers returns user ids that checked in within the window.
	OnlineUsers(ctx context.Context) ([]string, error)
}
