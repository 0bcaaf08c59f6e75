// Package host tracks the views connected to a provider and routes the
// messages they send.
//
// A Registry maps view ids to transports and broadcasts events to all of
// them. A Provider owns a Registry and dispatches every inbound message to
// exactly one of the log sink, the action dispatcher or the generic
// handlers.
package host

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

type view struct {
	transport transport.Transport
	context   protocol.RequestContext
	release   func()
}

// BroadcastResult reports the outcome of one broadcast.
type BroadcastResult struct {
	Delivered int

	// Failed lists the views that were pruned because their send failed.
	Failed []string
}

// Registry tracks connected views for one view type.
type Registry struct {
	viewType string
	logger   *slog.Logger
	observer Observer

	mu       sync.Mutex
	views    map[string]*view
	disposed bool
}

// NewRegistry returns an empty registry.
func NewRegistry(viewType string, opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		viewType: viewType,
		logger:   o.logger.With("viewType", viewType),
		observer: o.observer,
		views:    make(map[string]*view),
	}
}

// ViewType returns the view type the registry was created for.
func (r *Registry) ViewType() string {
	return r.viewType
}

// sameTransport compares transports without panicking on uncomparable
// dynamic types.
func sameTransport(a, b transport.Transport) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Register stores t under id. Registering the same pair again is a no-op
// and returns false. A different transport already stored under id is
// replaced and its disposal subscription released. If t implements
// transport.Disposable the entry is removed when t is disposed.
func (r *Registry) Register(id string, t transport.Transport) bool {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return false
	}
	old, exists := r.views[id]
	if exists && sameTransport(old.transport, t) {
		r.mu.Unlock()
		return false
	}
	v := &view{
		transport: t,
		context: protocol.RequestContext{
			ViewID:    id,
			ViewType:  r.viewType,
			Timestamp: time.Now().UnixMilli(),
			SessionID: uuid.NewString(),
		},
	}
	r.views[id] = v
	r.mu.Unlock()

	if exists {
		old.releaseHook()
		r.logger.Debug("view replaced", "viewId", id)
	}

	// OnDispose may run the hook synchronously, so it is registered
	// outside the lock.
	if d, ok := t.(transport.Disposable); ok {
		release := d.OnDispose(func() {
			if r.remove(id, v) {
				r.logger.Debug("view disposed", "viewId", id)
			}
		})
		r.mu.Lock()
		if r.views[id] == v {
			v.release = release
			release = nil
		}
		r.mu.Unlock()
		if release != nil {
			release()
		}
	}

	r.notifyViews()
	return true
}

func (v *view) releaseHook() {
	if v.release != nil {
		v.release()
	}
}

// remove deletes id only if it still maps to v.
func (r *Registry) remove(id string, v *view) bool {
	r.mu.Lock()
	current, ok := r.views[id]
	if !ok || current != v {
		r.mu.Unlock()
		return false
	}
	delete(r.views, id)
	r.mu.Unlock()

	v.releaseHook()
	r.notifyViews()
	return true
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return r.remove(id, v)
}

// unregisterTransport removes id only if it still maps to t.
func (r *Registry) unregisterTransport(id string, t transport.Transport) bool {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok || !sameTransport(v.transport, t) {
		return false
	}
	return r.remove(id, v)
}

// Transport returns the transport registered under id.
func (r *Registry) Transport(id string) (transport.Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, false
	}
	return v.transport, true
}

// Broadcast sends one event envelope to every registered view. Sends run
// concurrently; a send that fails or panics does not affect the others.
// Failed views are pruned after every send has finished.
func (r *Registry) Broadcast(ctx context.Context, key string, args ...any) BroadcastResult {
	r.mu.Lock()
	if r.disposed || len(r.views) == 0 {
		r.mu.Unlock()
		return BroadcastResult{}
	}
	targets := make(map[string]*view, len(r.views))
	for id, v := range r.views {
		targets[id] = v
	}
	r.mu.Unlock()

	msg := protocol.NewEvent(key, args...)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failed   []string
		failures = make(map[string]*view)
	)
	for id, v := range targets {
		wg.Add(1)
		go func(id string, v *view) {
			defer wg.Done()
			if err := transport.SafeSend(ctx, v.transport, msg); err != nil {
				r.logger.Warn("broadcast send failed", "viewId", id, "key", key, "error", err)
				mu.Lock()
				failed = append(failed, id)
				failures[id] = v
				mu.Unlock()
			}
		}(id, v)
	}
	wg.Wait()

	for id, v := range failures {
		r.remove(id, v)
	}
	sort.Strings(failed)

	result := BroadcastResult{Delivered: len(targets) - len(failed), Failed: failed}
	if r.observer != nil {
		r.observer.BroadcastDone(key, result.Delivered, len(failed))
	}
	return result
}

// Count returns the number of registered views.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Context returns the context record created when id was registered.
func (r *Registry) Context(id string) (protocol.RequestContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return protocol.RequestContext{}, false
	}
	return v.context, true
}

// IDs returns the registered view ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispose clears the registry and releases every disposal subscription.
// Later registrations are refused and broadcasts do nothing. Safe to call
// more than once.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	views := r.views
	r.views = make(map[string]*view)
	r.mu.Unlock()

	for _, v := range views {
		v.releaseHook()
	}
	r.notifyViews()
}

func (r *Registry) notifyViews() {
	if r.observer != nil {
		r.observer.ViewsChanged(r.Count())
	}
}
