package contracts

import (
	"context"
)

// Registry is the sole source of truth for "is user X reachable right now".
// It owns the mapping from user id to the single live connection for that
// user; callers receive one instance at startup, there is no ambient global.
type Registry interface {
	// Register binds the client's user id to this connection,
	// unconditionally overwriting any prior entry (last-connection-wins;
	// the displaced connection is neither closed nor notified).
	Register(c Client)
	// Deregister removes the entry for userID. Removing an absent user is
	// a safe no-op, which guards against duplicate disconnect events.
	Deregister(userID string) bool
	// Lookup returns the live connection for userID when one exists.
	Lookup(userID string) (Client, bool)
	// SnapshotKeys returns the set of user ids currently registered.
	SnapshotKeys() []string
	// IsOnline reports whether userID currently holds a live connection.
	IsOnline(userID string) bool
	// Announce pushes the current roster to every registered client.
	Announce(ctx context.Context)
}

// Client is the minimal surface the Registry needs to talk to one
// websocket connection.
type Client interface {
	UserID() string
	ConnID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
