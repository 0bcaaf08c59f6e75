package rpc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// EventListener receives the value array of an event as positional args.
type EventListener func(args ...any)

type listener struct {
	fn EventListener
}

// Client issues requests over a transport and correlates the replies.
type Client struct {
	transport      transport.Transport
	pending        *PendingTable
	logger         *slog.Logger
	defaultTimeout time.Duration
	requestContext *protocol.RequestContext

	mu        sync.Mutex
	listeners map[string][]*listener

	unsubscribe func()
	disposeOnce sync.Once
}

// NewClient subscribes to t and returns a ready client.
func NewClient(t transport.Transport, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, ErrMissingTransport
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		transport:      t,
		pending:        NewPendingTable(),
		logger:         o.logger,
		defaultTimeout: o.defaultTimeout,
		requestContext: o.requestContext,
		listeners:      make(map[string][]*listener),
	}
	c.unsubscribe = t.Subscribe(c.handleMessage)
	return c, nil
}

// Send issues one request and returns its future. A transport failure
// rejects the future immediately with the send error.
func (c *Client) Send(ctx context.Context, key string, params []any, rc *protocol.RequestContext) *Future {
	id := protocol.NewRequestID()
	f, err := c.pending.Add(id)
	if err != nil {
		return rejectedFuture(id, err)
	}
	if c.defaultTimeout > 0 {
		c.pending.SetTimeout(id, c.defaultTimeout)
	}

	if err := transport.SafeSend(ctx, c.transport, protocol.NewRequest(id, key, params, rc)); err != nil {
		c.logger.Debug("rpc send failed", "key", key, "id", id, "error", err)
		c.pending.Reject(id, err)
	}
	return f
}

// Call sends a request and waits for its outcome. If ctx ends first the
// request is abandoned and a late reply is dropped.
func (c *Client) Call(ctx context.Context, key string, params ...any) (any, error) {
	f := c.Send(ctx, key, params, c.requestContext)
	select {
	case <-f.Done():
	case <-ctx.Done():
		c.pending.Reject(f.ID(), ctx.Err())
		<-f.Done()
	}
	value, err, _ := f.Result()
	return value, err
}

// SetTimeout arms the timeout slot for an outstanding future. It returns
// false if the future is no longer pending.
func (c *Client) SetTimeout(f *Future, d time.Duration) bool {
	return c.pending.SetTimeout(f.ID(), d)
}

// On registers fn for events with key. The returned function removes it.
func (c *Client) On(key string, fn EventListener) (off func()) {
	l := &listener{fn: fn}
	c.mu.Lock()
	c.listeners[key] = append(c.listeners[key], l)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ls := c.listeners[key]
			for i, candidate := range ls {
				if candidate == l {
					c.listeners[key] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(c.listeners[key]) == 0 {
				delete(c.listeners, key)
			}
		})
	}
}

// Pending returns the number of outstanding requests.
func (c *Client) Pending() int {
	return c.pending.Len()
}

// Dispose tears the client down. Every outstanding future is rejected with
// ErrDisposed and nothing that arrives afterwards can settle it. Safe to
// call more than once.
func (c *Client) Dispose() {
	c.disposeOnce.Do(func() {
		c.unsubscribe()
		n := c.pending.Close(ErrDisposed)

		c.mu.Lock()
		c.listeners = make(map[string][]*listener)
		c.mu.Unlock()

		if n > 0 {
			c.logger.Debug("rpc client disposed", "rejected", n)
		}
	})
}

func (c *Client) handleMessage(msg any) {
	switch protocol.Classify(msg) {
	case protocol.TypeResponse:
		r, _ := protocol.ParseResponse(msg)
		c.pending.Resolve(r.ID, r.Value)
	case protocol.TypeError:
		e, _ := protocol.ParseError(msg)
		c.pending.Reject(e.ID, &RemoteError{ID: e.ID, Message: e.Value})
	case protocol.TypeEvent:
		ev, _ := protocol.ParseEvent(msg)
		c.emit(ev.Key, ev.Value)
	}
}

func (c *Client) emit(key string, args []any) {
	c.mu.Lock()
	ls := append([]*listener(nil), c.listeners[key]...)
	c.mu.Unlock()

	for _, l := range ls {
		c.invoke(key, l, args)
	}
}

func (c *Client) invoke(key string, l *listener, args []any) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event listener panicked", "key", key, "panic", r)
		}
	}()
	l.fn(args...)
}
