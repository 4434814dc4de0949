package services

import (
	"context"
	"log/slog"
	"time"

	"duet/internal/core/contracts"
	"duet/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var presenceTracer = otel.Tracer("presence-service")

// PresenceService drives each connection through its lifecycle:
// Connecting -> Registered -> Closed. Transitions are explicit so the
// handler can be tested without a live transport.
type PresenceService struct {
	registry contracts.Registry
	mirror   contracts.PresenceMirror
	users    domain.UserRepository
	log      *slog.Logger
}

func NewPresenceService(
	log *slog.Logger,
	registry contracts.Registry,
	mirror contracts.PresenceMirror,
	users domain.UserRepository,
) *PresenceService {
	return &PresenceService{
		log:      log,
		registry: registry,
		mirror:   mirror,
		users:    users,
	}
}

// HandleConnect validates the connection's claimed identity and registers
// it. An empty identity closes the connection without ever registering it;
// it never appears in a presence announcement. A successful registration
// triggers exactly one announcement with the post-mutation roster.
func (s *PresenceService) HandleConnect(ctx context.Context, c contracts.Client) (domain.ConnState, error) {
	ctx, span := presenceTracer.Start(ctx, "PresenceService.HandleConnect", trace.WithAttributes(
		attribute.String("user.id", c.UserID()),
		attribute.String("conn.id", c.ConnID()),
	))
	defer span.End()
	if c.UserID() == "" {
		c.Close()
		span.RecordError(domain.ErrEmptyIdentity)
		s.log.WarnContext(ctx, "presence - handle connect - empty identity, connection refused", "conn_id", c.ConnID())
		return domain.StateClosed, domain.ErrEmptyIdentity
	}
	s.registry.Register(c)
	s.registry.Announce(ctx)
	if err := s.mirror.MarkOnline(ctx, c.UserID(), 45*time.Second); err != nil {
		// mirror is observational, a miss here never blocks the connection
		s.log.WarnContext(ctx, "presence - handle connect - mirror update failed", "user_id", c.UserID(), "err", err)
	}
	s.log.InfoContext(ctx, "presence - handle connect - registered", "user_id", c.UserID(), "conn_id", c.ConnID())
	return domain.StateRegistered, nil
}

// HandleDisconnect deregisters the connection and announces the shrunken
// roster. Disconnects are terminal for a connection instance; calling this
// on a connection that never reached Registered, or a second time, is a
// safe no-op and triggers no announcement.
func (s *PresenceService) HandleDisconnect(ctx context.Context, state domain.ConnState, c contracts.Client) domain.ConnState {
	ctx, span := presenceTracer.Start(ctx, "PresenceService.HandleDisconnect", trace.WithAttributes(
		attribute.String("user.id", c.UserID()),
		attribute.String("conn.state", state.String()),
	))
	defer span.End()
	if state != domain.StateRegistered {
		return state
	}
	if s.registry.Deregister(c.UserID()) {
		s.registry.Announce(ctx)
	}
	if err := s.mirror.MarkOffline(ctx, c.UserID()); err != nil {
		s.log.WarnContext(ctx, "presence - handle disconnect - mirror update failed", "user_id", c.UserID(), "err", err)
	}
	if uid, err := uuid.Parse(c.UserID()); err == nil {
		if err := s.users.TouchLastSeen(ctx, uid); err != nil {
			s.log.WarnContext(ctx, "presence - handle disconnect - last seen update failed", "user_id", c.UserID(), "err", err)
		}
	}
	s.log.InfoContext(ctx, "presence - handle disconnect - deregistered", "user_id", c.UserID(), "conn_id", c.ConnID())
	return domain.StateClosed
}

// HandleHeartbeat refreshes the redis mirror while the connection lives.
func (s *PresenceService) HandleHeartbeat(ctx context.Context, userID string) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("presence - handle heartbeat - stopped", "user_id", userID)
			return
		case <-ticker.C:
			if err := s.mirror.MarkOnline(ctx, userID, 45*time.Second); err != nil {
				s.log.ErrorContext(ctx, "presence - handle heartbeat - mirror refresh failed", "user_id", userID, "err", err)
			}
		}
	}
}

// IsOnline answers the application layer's status query from the registry,
// the sole source of truth for reachability.
func (s *PresenceService) IsOnline(userID string) bool {
	return s.registry.IsOnline(userID)
}

// OnlineUsers returns the current roster.
func (s *PresenceService) OnlineUsers() []string {
	return s.registry.SnapshotKeys()
}
