package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

// echoServer upgrades every connection and echoes each envelope back.
func echoServer(t *testing.T, onConn func(*WebSocket)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ws := NewWebSocket(conn, WithLogger(testLogger()))
		ws.Subscribe(func(msg any) {
			_ = ws.Send(context.Background(), msg)
		})
		if onConn != nil {
			onConn(ws)
		}
		ws.Start()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := echoServer(t, nil)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(srv), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	got := make(chan any, 1)
	client.Subscribe(func(msg any) { got <- msg })
	client.Start()

	if err := client.Send(ctx, protocol.NewRequest("r1", "echo", []any{"hi"}, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	req, ok := protocol.ParseRequest(receive(t, got))
	if !ok {
		t.Fatal("echoed value is not a request")
	}
	if req.ID != "r1" || req.Params[0] != "hi" {
		t.Errorf("echoed request = %#v", req)
	}
}

func TestWebSocketDisposeOnPeerClose(t *testing.T) {
	disposed := make(chan struct{})
	srv := echoServer(t, func(ws *WebSocket) {
		ws.OnDispose(func() { close(disposed) })
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(srv), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Start()
	client.Close()

	select {
	case <-disposed:
	case <-time.After(2 * time.Second):
		t.Fatal("server side was not disposed after client close")
	}

	if err := client.Send(ctx, protocol.NewEvent("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestWebSocketSendRejectsUncloneable(t *testing.T) {
	srv := echoServer(t, nil)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(srv), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(ctx, make(chan int)); err == nil {
		t.Error("Send should fail for a channel value")
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := Dial(ctx, "ws://127.0.0.1:1/none"); err == nil {
		t.Error("Dial to a closed port should fail")
	}
}
