package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"duet/internal/core/contracts"
	"duet/internal/core/domain"

	"github.com/google/uuid"
)

type fakeClient struct {
	userID  string
	connID  string
	sent    [][]byte
	sendErr error
	closed  bool
}

func (f *fakeClient) UserID() string { return f.userID }
func (f *fakeClient) ConnID() string { return f.connID }
func (f *fakeClient) Close()         { f.closed = true }
func (f *fakeClient) Send(ctx context.Context, data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	return nil
}

// fakeRegistry counts announcements so tests can assert the
// one-announce-per-mutation property.
type fakeRegistry struct {
	mu        sync.Mutex
	clients   map[string]contracts.Client
	announces int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{clients: map[string]contracts.Client{}}
}

func (r *fakeRegistry) Register(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.UserID()] = c
}

func (r *fakeRegistry) Deregister(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[userID]; !ok {
		return false
	}
	delete(r.clients, userID)
	return true
}

func (r *fakeRegistry) Lookup(userID string) (contracts.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *fakeRegistry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

func (r *fakeRegistry) SnapshotKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.clients))
	for id := range r.clients {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func (r *fakeRegistry) Announce(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announces++
}

type fakeMirror struct {
	online map[string]bool
	err    error
}

func newFakeMirror() *fakeMirror { return &fakeMirror{online: map[string]bool{}} }

func (m *fakeMirror) MarkOnline(ctx context.Context, userID string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.online[userID] = true
	return nil
}

func (m *fakeMirror) MarkOffline(ctx context.Context, userID string) error {
	delete(m.online, userID)
	return m.err
}

func (m *fakeMirror) OnlineUsers(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(m.online))
	for id := range m.online {
		out = append(out, id)
	}
	return out, m.err
}

type fakeUserRepo struct {
	byID     map[uuid.UUID]*domain.User
	byEmail  map[string]*domain.User
	lastSeen []uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[uuid.UUID]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListUsers(ctx context.Context, exclude uuid.UUID) ([]domain.User, error) {
	var out []domain.User
	for id, u := range r.byID {
		if id != exclude {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	r.lastSeen = append(r.lastSeen, id)
	return nil
}

type fakeMessageRepo struct {
	messages []domain.Message
	saveErr  error
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, m *domain.Message) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkSeen(ctx context.Context, reader, peer uuid.UUID) error {
	for i := range r.messages {
		if r.messages[i].SenderID == peer && r.messages[i].RecipientID == reader {
			r.messages[i].Seen = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) CountUnseen(ctx context.Context, reader uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, m := range r.messages {
		if m.RecipientID == reader && !m.Seen {
			out[m.SenderID]++
		}
	}
	return out, nil
}

type fakeQueue struct {
	published [][]byte
	err       error
}

func (q *fakeQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, payload)
	return nil
}

func (q *fakeQueue) SubscribeToStream(ctx context.Context, topic, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}

func (q *fakeQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, msgID string) error {
	return nil
}

func (q *fakeQueue) DeleteMessage(ctx context.Context, topic, msgID string) error { return nil }

// passthroughTx runs the function without a real transaction.
type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
