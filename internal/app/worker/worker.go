package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"duet/internal/core/contracts"
	"duet/internal/core/domain"
	"duet/internal/core/services"
)

// IngestWorker consumes the websocket ingest stream. Each entry is
// persisted first; only after the durable write does the dispatcher get a
// chance to push the message to the recipient.
type IngestWorker struct {
	log      *slog.Logger
	queue    contracts.MessageQueue
	messages *services.MessageService
	stream   string
	conGroup string
}

func NewIngestWorker(
	log *slog.Logger,
	queue contracts.MessageQueue,
	messages *services.MessageService,
	stream string,
	conGroup string,
) contracts.AsyncWorker {
	return &IngestWorker{
		log:      log,
		queue:    queue,
		messages: messages,
		stream:   stream,
		conGroup: conGroup,
	}
}

func (w *IngestWorker) Run(ctx context.Context) error {
	if err := w.queue.SubscribeToStream(ctx, w.stream, w.conGroup, w.ProcessMessage); err != nil {
		w.log.ErrorContext(ctx, "worker - run - subscribe to stream failed", "stream", w.stream, "err", err)
		return err
	}
	w.log.InfoContext(ctx, "worker - run - subscribed to ingest stream", "stream", w.stream, "group", w.conGroup)
	return nil
}

func (w *IngestWorker) ProcessMessage(
	ctx context.Context,
	messageID string,
	raw []byte,
) error {
	var payload domain.MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		w.log.Error("worker - process message - wrong payload", "stream_entry", messageID)
		return err
	}
	if err := w.messages.SaveAndDispatch(ctx, &payload); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - save and dispatch failed", "stream_entry", messageID, "err", err)
		return err
	}
	// DB save confirmed: remove the entry from the pending list (XACK)
	if err := w.queue.AcknowledgeMessage(ctx, w.stream, w.conGroup, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - acknowledge failed", "stream_entry", messageID, "err", err)
		return err
	}
	// XDEL keeps the stream memory-efficient; the message is already
	// processed and acked, so a failure here is only logged.
	if err := w.queue.DeleteMessage(ctx, w.stream, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - delete failed", "stream_entry", messageID, "err", err)
	}
	return nil
}
