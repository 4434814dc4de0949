package contracts

import "context"

type AsyncWorker interface {
	// Run starts the consumer loop for the ingest stream
	Run(ctx context.Context) error
	// ProcessMessage persists one queued payload, dispatches it to the
	// recipient when reachable, then acks and deletes the stream entry
	ProcessMessage(ctx context.Context, msgID string, rawData []byte) error
}
