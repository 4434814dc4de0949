package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialTestClient(t *testing.T) *RuntimeClient {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	sock := NewWebSocket(context.Background(), conn)
	client := NewClient(context.Background(), sock, "alice", "c1")
	t.Cleanup(client.Close)
	return client
}

func TestSendDeliversWhileOpen(t *testing.T) {
	c := dialTestClient(t)
	require.NoError(t, c.Send(context.Background(), []byte("hello")))
}

func TestSendAfterCloseFailsWithoutPanic(t *testing.T) {
	c := dialTestClient(t)
	c.Close()

	// A displaced or disconnected client keeps receiving dispatch
	// attempts; every one must come back as a plain error.
	for i := 0; i < 200; i++ {
		require.ErrorIs(t, c.Send(context.Background(), []byte("late")), errClientClosed)
	}
}

func TestConcurrentSendAndClose(t *testing.T) {
	c := dialTestClient(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Send(context.Background(), []byte("racing"))
			}
		}()
	}
	c.Close()
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	c := dialTestClient(t)
	c.Close()
	c.Close()
}
