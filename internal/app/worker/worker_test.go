package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"duet/internal/app/registry"
	"duet/internal/core/domain"
	"duet/internal/core/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	acked   []string
	deleted []string
}

func (q *recordingQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	return nil
}

func (q *recordingQueue) SubscribeToStream(ctx context.Context, topic, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}

func (q *recordingQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, msgID string) error {
	q.acked = append(q.acked, msgID)
	return nil
}

func (q *recordingQueue) DeleteMessage(ctx context.Context, topic, msgID string) error {
	q.deleted = append(q.deleted, msgID)
	return nil
}

type memMessageRepo struct {
	messages []domain.Message
}

func (r *memMessageRepo) CreateMessage(ctx context.Context, m *domain.Message) error {
	r.messages = append(r.messages, *m)
	return nil
}

func (r *memMessageRepo) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	return r.messages, nil
}

func (r *memMessageRepo) MarkSeen(ctx context.Context, reader, peer uuid.UUID) error { return nil }

func (r *memMessageRepo) CountUnseen(ctx context.Context, reader uuid.UUID) (map[uuid.UUID]int, error) {
	return nil, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestProcessMessagePersistsThenAcksAndDeletes(t *testing.T) {
	hub := registry.NewHub(slog.Default())
	repo := &memMessageRepo{}
	queue := &recordingQueue{}
	msgSvc := services.NewMessageService(slog.Default(), hub, queue, repo, passthroughTx{}, "messages:ingest")
	w := NewIngestWorker(slog.Default(), queue, msgSvc, "messages:ingest", "persist-workers")

	payload := domain.MessagePayload{
		ClientMsgID: "m1",
		SenderID:    uuid.New(),
		RecipientID: uuid.New(),
		Body:        "queued hello",
	}
	raw, _ := json.Marshal(payload)

	require.NoError(t, w.ProcessMessage(context.Background(), "1-0", raw))

	require.Len(t, repo.messages, 1)
	require.Equal(t, "queued hello", repo.messages[0].Body)
	require.Equal(t, []string{"1-0"}, queue.acked)
	require.Equal(t, []string{"1-0"}, queue.deleted)
}

func TestProcessMessageRejectsMalformedPayload(t *testing.T) {
	hub := registry.NewHub(slog.Default())
	repo := &memMessageRepo{}
	queue := &recordingQueue{}
	msgSvc := services.NewMessageService(slog.Default(), hub, queue, repo, passthroughTx{}, "messages:ingest")
	w := NewIngestWorker(slog.Default(), queue, msgSvc, "messages:ingest", "persist-workers")

	require.Error(t, w.ProcessMessage(context.Background(), "1-0", []byte("{not json")))
	require.Empty(t, repo.messages)
	require.Empty(t, queue.acked)
}
