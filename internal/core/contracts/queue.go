package contracts

import (
	"context"
)

type MessageQueue interface {
	// Producer side (websocket ingest)
	PublishToStream(ctx context.Context, topic string, payload []byte) error
	// Consumer side (persist worker)
	// SubscribeToStream handles the reliable reading from the Redis Stream
	SubscribeToStream(ctx context.Context, topic string, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// AcknowledgeMessage tells the stream the entry is fully processed
	AcknowledgeMessage(ctx context.Context, topic, conGroup, msgID string) error
	// DeleteMessage removes a processed entry from the stream
	DeleteMessage(ctx context.Context, topic, msgID string) error
}
