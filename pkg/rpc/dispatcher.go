package rpc

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/hbmartin/webview-ipc/pkg/middleware"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Handler serves one RPC key. Handlers decode their own params.
type Handler func(ctx context.Context, params []any) (any, error)

// Dispatcher answers request envelopes with response or error envelopes.
// It holds no per-call state.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	chain    []middleware.Middleware
	logger   *slog.Logger
}

// NewDispatcher returns a dispatcher serving handlers. The map is copied.
func NewDispatcher(handlers map[string]Handler, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Dispatcher{
		handlers: make(map[string]Handler, len(handlers)),
		chain:    o.middleware,
		logger:   o.logger,
	}
	for k, h := range handlers {
		d.handlers[k] = h
	}
	return d
}

// Register adds or replaces the handler for key.
func (d *Dispatcher) Register(key string, h Handler) {
	d.mu.Lock()
	d.handlers[key] = h
	d.mu.Unlock()
}

// Keys returns the registered keys in sorted order.
func (d *Dispatcher) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.handlers))
	for k := range d.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type requestContextKey struct{}

// RequestContextFrom returns the context the client attached to the request
// being handled, if any.
func RequestContextFrom(ctx context.Context) (*protocol.RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*protocol.RequestContext)
	return rc, ok && rc != nil
}

// Invoke runs the handler for req through the middleware chain. Panics are
// recovered and returned as errors matching ErrHandlerPanic.
func (d *Dispatcher) Invoke(ctx context.Context, req *protocol.Request) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[req.Key]
	d.mu.RUnlock()
	if !ok {
		return nil, &UnknownKeyError{Key: req.Key}
	}

	if req.Context != nil {
		ctx = context.WithValue(ctx, requestContextKey{}, req.Context)
	}
	call := &middleware.Call{
		Kind:    middleware.KindRequest,
		Key:     req.Key,
		Params:  req.Params,
		Context: req.Context,
	}
	return middleware.Run(ctx, d.chain, call, func(ctx context.Context) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(req.Key, r)
			}
		}()
		return h(ctx, req.Params)
	})
}

// Handle invokes req and sends the outcome back over t with the same id.
// Only a failure to send the reply is returned.
func (d *Dispatcher) Handle(ctx context.Context, t transport.Transport, req *protocol.Request) error {
	value, err := d.Invoke(ctx, req)
	if err != nil {
		d.logger.Debug("rpc handler failed", "key", req.Key, "id", req.ID, "error", err)
		return transport.SafeSend(ctx, t, protocol.NewError(req.ID, err.Error()))
	}

	sendErr := transport.SafeSend(ctx, t, protocol.NewResponse(req.ID, value))
	if errors.Is(sendErr, protocol.ErrNotCloneable) {
		// The caller still gets an answer it can correlate.
		d.logger.Warn("rpc result not cloneable", "key", req.Key, "id", req.ID, "error", sendErr)
		return transport.SafeSend(ctx, t, protocol.NewError(req.ID, sendErr.Error()))
	}
	return sendErr
}

// HandleMessage handles msg if it is a request envelope and reports whether
// it was one.
func (d *Dispatcher) HandleMessage(ctx context.Context, t transport.Transport, msg any) bool {
	req, ok := protocol.ParseRequest(msg)
	if !ok {
		return false
	}
	if err := d.Handle(ctx, t, req); err != nil {
		d.logger.Warn("rpc reply failed", "key", req.Key, "id", req.ID, "error", err)
	}
	return true
}
