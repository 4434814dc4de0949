package registry

import (
	"context"
	"duet/internal/core/contracts"
	"duet/internal/core/domain"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Hub owns the user -> live connection mapping for this process. It is the
// only shared mutable state of the realtime core; every caller receives the
// one instance built at startup.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client // user_id -> connection
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]contracts.Client),
		log:     log,
	}
}

// Register inserts or overwrites the entry for the client's user. A second
// connection under the same user id displaces the first entry; the displaced
// connection is left open and is not notified.
func (h *Hub) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.UserID()] = c
}

// Deregister removes the entry for userID. Reports whether an entry was
// actually removed; removing an absent user is a no-op, not an error.
func (h *Hub) Deregister(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		return false
	}
	delete(h.clients, userID)
	return true
}

func (h *Hub) Lookup(userID string) (contracts.Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SnapshotKeys returns the current roster, sorted for stable payloads.
func (h *Hub) SnapshotKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.clients))
	for id := range h.clients {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Announce fans the full roster out to every registered client. Clients get
// the whole set rather than a delta so a reconnecting client converges on
// the first event it sees. Send failures are per-client and swallowed; a
// connection that died between snapshot and push simply misses the event.
func (h *Hub) Announce(ctx context.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.clients))
	for id := range h.clients {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	event := domain.PresenceEvent{
		Type:   domain.TypePresence,
		Online: keys,
	}
	data, _ := json.Marshal(event)
	for id, c := range h.clients {
		if err := c.Send(ctx, data); err != nil {
			h.log.Debug("hub - announce - push skipped", "user_id", id, "err", err)
		}
	}
}
