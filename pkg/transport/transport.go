// Package transport defines the channel the bridge runs over and provides
// two implementations: an in-process Pipe and a WebSocket connection.
//
// A transport moves one structurally-cloneable value at a time. Send may
// fail synchronously by returning an error; a transport that panics is
// treated the same way by SafeSend. Inbound values are delivered to every
// subscriber as plain JSON trees.
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbmartin/webview-ipc/internal/errors"
)

// ErrClosed is returned by Send after the transport has been disposed.
var ErrClosed = errors.New(errors.CodeTransportClosed)

// Transport sends values to the other side and delivers inbound values.
type Transport interface {
	// Send transmits one value. The value must survive a structured clone.
	Send(ctx context.Context, msg any) error

	// Subscribe registers fn for every inbound value until unsubscribe is
	// called.
	Subscribe(fn func(msg any)) (unsubscribe func())
}

// Disposable is implemented by transports that report their own disposal.
type Disposable interface {
	// OnDispose registers fn to run once when the transport is disposed.
	// If the transport is already disposed fn runs immediately.
	OnDispose(fn func()) (unsubscribe func())
}

// SafeSend calls t.Send and converts a panic into an error.
func SafeSend(ctx context.Context, t Transport, msg any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError(r)
		}
	}()
	return t.Send(ctx, msg)
}

// PanicError converts a recovered panic value into an error.
func PanicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("transport: send panicked: %w", err)
	}
	return fmt.Errorf("transport: send panicked: %v", r)
}

type entry[T any] struct {
	id uint64
	fn T
}

// listeners is an ordered set of callbacks.
type listeners[T any] struct {
	mu      sync.Mutex
	next    uint64
	entries []entry[T]
}

func (l *listeners[T]) add(fn T) func() {
	l.mu.Lock()
	l.next++
	id := l.next
	l.entries = append(l.entries, entry[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// disposeHooks runs its callbacks exactly once.
type disposeHooks struct {
	mu    sync.Mutex
	fired bool
	hooks listeners[func()]
}

func (d *disposeHooks) add(fn func()) func() {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		fn()
		return func() {}
	}
	unsubscribe := d.hooks.add(fn)
	d.mu.Unlock()
	return unsubscribe
}

func (d *disposeHooks) fire() {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return
	}
	d.fired = true
	d.mu.Unlock()

	for _, fn := range d.hooks.snapshot() {
		fn()
	}
}
