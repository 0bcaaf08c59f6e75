package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 1 << 20
)

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithWriteTimeout bounds every write. Default: 10 seconds.
func WithWriteTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.writeTimeout = d }
}

// WithReadLimit sets the maximum inbound frame size. Default: 1MB.
func WithReadLimit(n int64) WebSocketOption {
	return func(w *WebSocket) { w.readLimit = n }
}

// WithLogger sets the logger used for read and decode failures.
func WithLogger(logger *slog.Logger) WebSocketOption {
	return func(w *WebSocket) { w.logger = logger }
}

// WebSocket carries envelopes as JSON text frames over one connection.
type WebSocket struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	readLimit    int64
	logger       *slog.Logger

	subs     listeners[func(any)]
	disposed disposeHooks

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocket wraps an established connection. Call Start once the
// subscribers are in place.
func NewWebSocket(conn *websocket.Conn, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
		readLimit:    defaultReadLimit,
		logger:       slog.Default(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dial connects to a host at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...WebSocketOption) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	return NewWebSocket(conn, opts...), nil
}

// Start begins reading frames. Calling it more than once has no effect.
func (w *WebSocket) Start() {
	if w.started.Swap(true) {
		return
	}
	go w.readLoop()
}

// Send writes msg as one JSON text frame.
func (w *WebSocket) Send(ctx context.Context, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.closed.Load() {
		return ErrClosed
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(w.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Subscribe registers fn for every decoded inbound frame.
func (w *WebSocket) Subscribe(fn func(msg any)) func() {
	return w.subs.add(fn)
}

// OnDispose registers fn to run once when the connection ends.
func (w *WebSocket) OnDispose(fn func()) func() {
	return w.disposed.add(fn)
}

// Done is closed when the connection ends.
func (w *WebSocket) Done() <-chan struct{} {
	return w.done
}

// Close sends a close frame, closes the connection and fires dispose hooks.
// It is safe to call more than once.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)

		w.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		w.writeMu.Unlock()

		err = w.conn.Close()
		close(w.done)
		w.disposed.fire()
	})
	return err
}

func (w *WebSocket) readLoop() {
	defer w.Close()

	if w.readLimit > 0 {
		w.conn.SetReadLimit(w.readLimit)
	}

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if !w.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				w.logger.Error("read error", "error", err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			w.logger.Warn("frame decode error", "error", err, "bytes", len(data))
			continue
		}

		for _, fn := range w.subs.snapshot() {
			w.deliver(fn, msg)
		}
	}
}

func (w *WebSocket) deliver(fn func(any), msg any) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("subscriber panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(msg)
}
