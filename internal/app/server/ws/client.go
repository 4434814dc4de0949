package ws

import (
	"context"
	"errors"
	"sync"
)

var errClientClosed = errors.New("client closed")

// RuntimeClient wraps one live websocket behind a buffered outbound channel
// so registry pushes never block on a slow peer.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	userID string
	connID string
	out    chan []byte
	once   sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	userID, connID string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		userID: userID,
		connID: connID,
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) UserID() string { return c.userID }
func (c *RuntimeClient) ConnID() string { return c.connID }

// Send enqueues one outbound frame. After Close it returns an error
// instead of delivering; a send racing a concurrent close may also land in
// the buffer and be dropped when the write loop is already gone. Either
// way the caller sees at most a delivery failure, never a panic.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return errClientClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	}
}

// Close never closes c.out: the write loop exits on the cancelled context,
// and leaving the channel open keeps a concurrent Send from panicking.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
