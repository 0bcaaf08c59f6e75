package transport

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

// Endpoint is one side of an in-process Pipe.
type Endpoint struct {
	name   string
	peer   *Endpoint
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []any
	closed bool

	subs     listeners[func(any)]
	disposed disposeHooks
	done     chan struct{}
}

// Pipe returns two linked endpoints. A value sent on one is cloned and
// delivered asynchronously, in order, to the subscribers of the other.
// Values delivered while an endpoint has no subscribers are dropped.
func Pipe() (*Endpoint, *Endpoint) {
	return NamedPipe("host", "client", slog.Default())
}

// NamedPipe is Pipe with endpoint names used in log output.
func NamedPipe(a, b string, logger *slog.Logger) (*Endpoint, *Endpoint) {
	if logger == nil {
		logger = slog.Default()
	}
	ea := newEndpoint(a, logger)
	eb := newEndpoint(b, logger)
	ea.peer, eb.peer = eb, ea
	go ea.deliverLoop()
	go eb.deliverLoop()
	return ea, eb
}

func newEndpoint(name string, logger *slog.Logger) *Endpoint {
	e := &Endpoint{
		name:   name,
		logger: logger.With("endpoint", name),
		done:   make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Send clones msg and queues it for the peer. Cloning failures are
// returned synchronously.
func (e *Endpoint) Send(ctx context.Context, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.isClosed() {
		return ErrClosed
	}
	clone, err := protocol.Clone(msg)
	if err != nil {
		return err
	}
	return e.peer.enqueue(clone)
}

// Subscribe registers fn for every value delivered to this endpoint.
func (e *Endpoint) Subscribe(fn func(msg any)) func() {
	return e.subs.add(fn)
}

// OnDispose registers fn to run when the pipe is closed.
func (e *Endpoint) OnDispose(fn func()) func() {
	return e.disposed.add(fn)
}

// Subscribers returns the number of active subscriptions.
func (e *Endpoint) Subscribers() int {
	return e.subs.len()
}

// Done is closed when the endpoint is closed.
func (e *Endpoint) Done() <-chan struct{} {
	return e.done
}

// Close disposes both ends of the pipe. Queued values are dropped.
func (e *Endpoint) Close() error {
	e.close()
	e.peer.close()
	return nil
}

func (e *Endpoint) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.queue = nil
	close(e.done)
	e.cond.Broadcast()
	e.mu.Unlock()

	e.disposed.fire()
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Endpoint) enqueue(msg any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.queue = append(e.queue, msg)
	e.cond.Signal()
	return nil
}

func (e *Endpoint) deliverLoop() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		msg := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		for _, fn := range e.subs.snapshot() {
			e.deliver(fn, msg)
		}
	}
}

func (e *Endpoint) deliver(fn func(any), msg any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("subscriber panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(msg)
}
