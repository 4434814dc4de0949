package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"duet/internal/core/contracts"
	"duet/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var msgTracer = otel.Tracer("message-service")

// MessageService owns message creation and the realtime dispatch that
// follows it. Dispatch runs strictly after the durable write; when the
// recipient holds no live connection the message simply waits for the next
// history fetch.
type MessageService struct {
	registry  contracts.Registry
	queue     contracts.MessageQueue
	repo      domain.MessageRepository
	txManager TxRunner
	stream    string
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	registry contracts.Registry,
	queue contracts.MessageQueue,
	repo domain.MessageRepository,
	txManager TxRunner,
	stream string,
) *MessageService {
	return &MessageService{
		log:       log,
		registry:  registry,
		queue:     queue,
		repo:      repo,
		txManager: txManager,
		stream:    stream,
	}
}

// Send persists the message and dispatches it. This is the synchronous
// HTTP path; the returned message carries the assigned id and timestamp.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.String("sender_id", senderID.String()),
		attribute.String("recipient_id", recipientID.String()),
	))
	defer span.End()
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if recipientID == uuid.Nil {
		return nil, domain.ErrInvalidRecipient
	}
	if senderID == recipientID {
		return nil, domain.ErrSelfMessage
	}
	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateMessage(txCtx, msg)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "messages - send - create message failed", "sender_id", senderID.String(), "err", err)
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.Dispatch(ctx, msg)
	return msg, nil
}

// Dispatch pushes the persisted message to the recipient's live connection
// when one exists. Offline recipient or a failed push are both silent
// no-ops: delivery is at-most-once and the history fetch is the recovery
// path.
func (s *MessageService) Dispatch(ctx context.Context, msg *domain.Message) {
	ctx, span := msgTracer.Start(ctx, "MessageService.Dispatch", trace.WithAttributes(
		attribute.String("message_id", msg.ID.String()),
		attribute.String("recipient_id", msg.RecipientID.String()),
	))
	defer span.End()
	c, ok := s.registry.Lookup(msg.RecipientID.String())
	if !ok {
		span.SetAttributes(attribute.Bool("delivered", false))
		s.log.InfoContext(ctx, "messages - dispatch - recipient offline, deferred to history fetch", "message_id", msg.ID.String(), "recipient_id", msg.RecipientID.String())
		return
	}
	data, _ := json.Marshal(domain.NewMessageEvent(msg))
	if err := c.Send(ctx, data); err != nil {
		// races with a concurrent disconnect; not retried, not surfaced
		span.RecordError(err)
		s.log.WarnContext(ctx, "messages - dispatch - push failed", "message_id", msg.ID.String(), "recipient_id", msg.RecipientID.String(), "err", err)
		return
	}
	span.SetAttributes(attribute.Bool("delivered", true))
	s.log.InfoContext(ctx, "messages - dispatch - delivered", "message_id", msg.ID.String(), "recipient_id", msg.RecipientID.String())
}

// Accept takes a raw websocket send frame, queues it on the ingest stream
// and acks receipt to the sender. Persistence and dispatch happen in the
// worker once the entry is consumed.
func (s *MessageService) Accept(ctx context.Context, senderID string, raw []byte) error {
	ctx, span := msgTracer.Start(ctx, "MessageService.Accept", trace.WithAttributes(
		attribute.String("sender_id", senderID),
		attribute.Int("payload_size", len(raw)),
	))
	defer span.End()
	var in domain.InboundSend
	if err := json.Unmarshal(raw, &in); err != nil {
		span.RecordError(err)
		s.log.Error("messages - accept - wrong frame format", "sender_id", senderID)
		return err
	}
	sid, err := uuid.Parse(senderID)
	if err != nil {
		return domain.ErrInvalidUserID
	}
	rid, err := uuid.Parse(in.RecipientID)
	if err != nil {
		return domain.ErrInvalidRecipient
	}
	if strings.TrimSpace(in.Body) == "" {
		return domain.ErrEmptyMessage
	}
	if sid == rid {
		return domain.ErrSelfMessage
	}
	payload := domain.MessagePayload{
		ClientMsgID: in.ClientMsgID,
		SenderID:    sid,
		RecipientID: rid,
		Body:        in.Body,
		CreatedAt:   time.Now(),
	}
	data, _ := json.Marshal(payload)
	if err := s.queue.PublishToStream(ctx, s.stream, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		s.log.ErrorContext(ctx, "messages - accept - publish to stream failed", "stream", s.stream, "err", err)
		return err
	}
	s.sendAck(ctx, senderID, domain.AckEvent{
		Type:        domain.TypeAck,
		ClientMsgID: in.ClientMsgID,
		Status:      domain.AckServerReceived,
		Timestamp:   time.Now(),
	})
	return nil
}

// SaveAndDispatch is the worker side of the websocket ingest path: persist
// the queued payload, dispatch to the recipient, ack the sender.
func (s *MessageService) SaveAndDispatch(ctx context.Context, payload *domain.MessagePayload) error {
	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    payload.SenderID,
		RecipientID: payload.RecipientID,
		Body:        payload.Body,
		CreatedAt:   payload.CreatedAt,
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateMessage(txCtx, msg)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - save and dispatch - create message failed", "err", err)
		return err
	}
	s.Dispatch(ctx, msg)
	s.sendAck(ctx, msg.SenderID.String(), domain.AckEvent{
		Type:        domain.TypeAck,
		ClientMsgID: payload.ClientMsgID,
		Status:      domain.AckPersisted,
		MessageID:   msg.ID.String(),
		Timestamp:   time.Now(),
	})
	return nil
}

// History returns the exchange between the caller and a peer, marking the
// peer's messages as seen. This is also the pull-based fallback that picks
// up anything dispatch could not deliver.
func (s *MessageService) History(ctx context.Context, callerID, peerID uuid.UUID) ([]domain.Message, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.History", trace.WithAttributes(
		attribute.String("caller_id", callerID.String()),
		attribute.String("peer_id", peerID.String()),
	))
	defer span.End()
	msgs, err := s.repo.ListConversation(ctx, callerID, peerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "db read failed")
		s.log.ErrorContext(ctx, "messages - history - list conversation failed", "err", err)
		return nil, err
	}
	if err := s.repo.MarkSeen(ctx, callerID, peerID); err != nil {
		s.log.WarnContext(ctx, "messages - history - mark seen failed", "err", err)
	}
	span.SetAttributes(attribute.Int("message_count", len(msgs)))
	return msgs, nil
}

// MarkSeen flags the peer's messages to the caller as seen.
func (s *MessageService) MarkSeen(ctx context.Context, callerID, peerID uuid.UUID) error {
	return s.repo.MarkSeen(ctx, callerID, peerID)
}

// UnseenCounts returns per-peer unseen totals for the directory.
func (s *MessageService) UnseenCounts(ctx context.Context, callerID uuid.UUID) (map[uuid.UUID]int, error) {
	return s.repo.CountUnseen(ctx, callerID)
}

func (s *MessageService) sendAck(ctx context.Context, userID string, ack domain.AckEvent) {
	c, ok := s.registry.Lookup(userID)
	if !ok {
		return
	}
	data, _ := json.Marshal(ack)
	_ = c.Send(ctx, data)
}
