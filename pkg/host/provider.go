package host

import (
	"context"
	"sync"

	"github.com/hbmartin/webview-ipc/pkg/logsink"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

type viewKey struct{}

// ViewFrom returns the registry context of the view whose message is being
// handled.
func ViewFrom(ctx context.Context) (protocol.RequestContext, bool) {
	rc, ok := ctx.Value(viewKey{}).(protocol.RequestContext)
	return rc, ok
}

type attachment struct {
	transport transport.Transport
	detach    func()

	// Guarded by Provider.mu.
	release  func()
	detached bool
}

// Provider routes the messages of every view attached to it. Each message
// goes to exactly one handler, in priority order: log envelopes to the log
// sink, act envelopes for this provider to the action dispatcher, then
// requests to the RPC dispatcher and anything else to the generic handler.
type Provider struct {
	registry *Registry
	opts     options
	logs     *logsink.Handler

	mu          sync.Mutex
	attachments map[string]*attachment
	disposed    bool

	inflight sync.WaitGroup
}

// NewProvider returns a provider for views of viewType.
func NewProvider(viewType string, opts ...Option) *Provider {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = logsink.NewSlogSink(o.logger.With("source", "view"))
	}

	p := &Provider{
		registry:    NewRegistry(viewType, opts...),
		opts:        o,
		logs:        logsink.NewHandler(o.sink),
		attachments: make(map[string]*attachment),
	}
	if p.opts.onError == nil {
		p.opts.onError = func(error) {}
	}
	return p
}

// Registry returns the provider's view registry.
func (p *Provider) Registry() *Registry {
	return p.registry
}

// RPC returns the request dispatcher the provider routes to, or nil.
func (p *Provider) RPC() *rpc.Dispatcher {
	return p.opts.rpc
}

// Attach registers t as viewID and starts routing its messages. Handlers
// run with ctx. Attaching a different transport under the same id detaches
// the previous one. The returned function detaches t.
func (p *Provider) Attach(ctx context.Context, viewID string, t transport.Transport) (detach func()) {
	p.mu.Lock()
	for {
		if p.disposed {
			p.mu.Unlock()
			return func() {}
		}
		prev, ok := p.attachments[viewID]
		if !ok {
			break
		}
		if sameTransport(prev.transport, t) {
			p.mu.Unlock()
			// A failed broadcast prunes the registry entry but leaves the
			// subscription in place; registering again restores it.
			if p.registry.Register(viewID, t) {
				p.opts.logger.Debug("view re-registered", "viewId", viewID)
			}
			return prev.detach
		}
		delete(p.attachments, viewID)
		p.mu.Unlock()
		prev.detach()
		p.mu.Lock()
	}

	p.registry.Register(viewID, t)

	a := &attachment{transport: t}
	unsubscribe := t.Subscribe(func(msg any) {
		p.route(ctx, viewID, t, msg)
	})
	var once sync.Once
	a.detach = func() {
		once.Do(func() {
			unsubscribe()
			p.registry.unregisterTransport(viewID, t)
			p.mu.Lock()
			if p.attachments[viewID] == a {
				delete(p.attachments, viewID)
			}
			a.detached = true
			release := a.release
			a.release = nil
			p.mu.Unlock()
			if release != nil {
				release()
			}
		})
	}
	p.attachments[viewID] = a
	p.mu.Unlock()

	// OnDispose may run a.detach synchronously, so it is registered outside
	// the lock.
	if d, ok := t.(transport.Disposable); ok {
		release := d.OnDispose(a.detach)
		p.mu.Lock()
		if !a.detached {
			a.release = release
			release = nil
		}
		p.mu.Unlock()
		if release != nil {
			release()
		}
	}

	p.opts.logger.Debug("view attached", "viewId", viewID)
	return a.detach
}

func (p *Provider) route(ctx context.Context, viewID string, t transport.Transport, msg any) {
	if rc, ok := p.registry.Context(viewID); ok {
		ctx = context.WithValue(ctx, viewKey{}, rc)
	}

	if p.logs.HandleMessage(ctx, msg) {
		return
	}

	if p.opts.actions != nil {
		if act, ok := p.opts.actions.Accepts(msg); ok {
			if err := p.opts.actions.Handle(ctx, t, act); err != nil {
				p.opts.logger.Error("action failed", "viewId", viewID, "key", act.Key, "error", err)
				p.opts.onError(err)
			}
			return
		}
	}

	if p.opts.rpc != nil {
		if req, ok := protocol.ParseRequest(msg); ok {
			p.inflight.Add(1)
			go func() {
				defer p.inflight.Done()
				if err := p.opts.rpc.Handle(ctx, t, req); err != nil {
					p.opts.logger.Warn("rpc reply failed", "viewId", viewID, "key", req.Key, "error", err)
					p.opts.onError(err)
				}
			}()
			return
		}
	}

	if p.opts.generic != nil {
		p.opts.generic(ctx, viewID, t, msg)
		return
	}
	p.opts.logger.Debug("unhandled message", "viewId", viewID, "type", protocol.Classify(msg))
}

// Broadcast sends an event to every attached view.
func (p *Provider) Broadcast(ctx context.Context, key string, args ...any) BroadcastResult {
	return p.registry.Broadcast(ctx, key, args...)
}

// Count returns the number of registered views.
func (p *Provider) Count() int {
	return p.registry.Count()
}

// Wait blocks until every in-flight request has been answered.
func (p *Provider) Wait() {
	p.inflight.Wait()
}

// Dispose detaches every view, clears the registry and waits for in-flight
// requests. Safe to call more than once.
func (p *Provider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	attachments := make([]*attachment, 0, len(p.attachments))
	for _, a := range p.attachments {
		attachments = append(attachments, a)
	}
	p.mu.Unlock()

	for _, a := range attachments {
		a.detach()
	}
	p.registry.Dispose()
	p.inflight.Wait()
}
