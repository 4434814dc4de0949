package services

import (
	"context"
	"log/slog"
	"testing"

	"duet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newPresence(t *testing.T) (*PresenceService, *fakeRegistry, *fakeMirror, *fakeUserRepo) {
	t.Helper()
	reg := newFakeRegistry()
	mirror := newFakeMirror()
	users := newFakeUserRepo()
	return NewPresenceService(slog.Default(), reg, mirror, users), reg, mirror, users
}

func TestConnectWithEmptyIdentityCloses(t *testing.T) {
	svc, reg, _, _ := newPresence(t)
	c := &fakeClient{userID: "", connID: "c1"}

	state, err := svc.HandleConnect(context.Background(), c)

	require.ErrorIs(t, err, domain.ErrEmptyIdentity)
	require.Equal(t, domain.StateClosed, state)
	require.True(t, c.closed)
	require.Empty(t, reg.SnapshotKeys())
	require.Zero(t, reg.announces)
}

func TestConnectRegistersAndAnnouncesOnce(t *testing.T) {
	svc, reg, mirror, _ := newPresence(t)
	uid := uuid.NewString()
	c := &fakeClient{userID: uid, connID: "c1"}

	state, err := svc.HandleConnect(context.Background(), c)

	require.NoError(t, err)
	require.Equal(t, domain.StateRegistered, state)
	require.Equal(t, []string{uid}, reg.SnapshotKeys())
	require.Equal(t, 1, reg.announces)
	require.True(t, mirror.online[uid])
}

func TestDisconnectDeregistersAndAnnounces(t *testing.T) {
	svc, reg, mirror, users := newPresence(t)
	uid := uuid.New()
	c := &fakeClient{userID: uid.String(), connID: "c1"}
	state, err := svc.HandleConnect(context.Background(), c)
	require.NoError(t, err)

	state = svc.HandleDisconnect(context.Background(), state, c)

	require.Equal(t, domain.StateClosed, state)
	require.Empty(t, reg.SnapshotKeys())
	require.Equal(t, 2, reg.announces) // one per mutation
	require.False(t, mirror.online[uid.String()])
	require.Equal(t, []uuid.UUID{uid}, users.lastSeen)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	svc, reg, _, _ := newPresence(t)
	uid := uuid.NewString()
	c := &fakeClient{userID: uid, connID: "c1"}
	state, err := svc.HandleConnect(context.Background(), c)
	require.NoError(t, err)

	state = svc.HandleDisconnect(context.Background(), state, c)
	state = svc.HandleDisconnect(context.Background(), state, c)

	require.Equal(t, domain.StateClosed, state)
	require.Equal(t, 2, reg.announces) // the second disconnect announced nothing
}

func TestDisconnectBeforeRegistrationIsNoop(t *testing.T) {
	svc, reg, _, _ := newPresence(t)
	c := &fakeClient{userID: uuid.NewString(), connID: "c1"}

	state := svc.HandleDisconnect(context.Background(), domain.StateConnecting, c)

	require.Equal(t, domain.StateConnecting, state)
	require.Zero(t, reg.announces)
}

func TestMirrorFailureDoesNotBlockConnect(t *testing.T) {
	svc, reg, mirror, _ := newPresence(t)
	mirror.err = context.DeadlineExceeded
	c := &fakeClient{userID: uuid.NewString(), connID: "c1"}

	state, err := svc.HandleConnect(context.Background(), c)

	require.NoError(t, err)
	require.Equal(t, domain.StateRegistered, state)
	require.Len(t, reg.SnapshotKeys(), 1)
}

func TestIsOnlineQueriesRegistry(t *testing.T) {
	svc, _, _, _ := newPresence(t)
	uid := uuid.NewString()
	_, err := svc.HandleConnect(context.Background(), &fakeClient{userID: uid, connID: "c1"})
	require.NoError(t, err)

	require.True(t, svc.IsOnline(uid))
	require.False(t, svc.IsOnline(uuid.NewString()))
	require.Equal(t, []string{uid}, svc.OnlineUsers())
}
