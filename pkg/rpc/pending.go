package rpc

import (
	"context"
	"sync"
	"time"
)

// Future is the eventual result of one request. It settles at most once.
type Future struct {
	id   string
	done chan struct{}

	mu      sync.Mutex
	settled bool
	blocked bool
	value   any
	err     error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// rejectedFuture returns a future already rejected with err.
func rejectedFuture(id string, err error) *Future {
	f := newFuture(id)
	f.settle(nil, err)
	return f
}

// ID returns the request id the future is correlated by.
func (f *Future) ID() string {
	return f.id
}

// Done is closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx ends. A ctx error does not
// settle the future.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled outcome without blocking.
func (f *Future) Result() (value any, err error, settled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.settled
}

func (f *Future) settle(value any, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled || f.blocked {
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	close(f.done)
	return true
}

// block prevents any later settlement.
func (f *Future) block() {
	f.mu.Lock()
	f.blocked = true
	f.mu.Unlock()
}

type pendingEntry struct {
	future *Future
	timer  *time.Timer
}

// PendingTable maps outstanding request ids to their futures.
// The zero value is not usable; call NewPendingTable.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
	closed  error
}

// NewPendingTable returns an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[string]*pendingEntry)}
}

// Add creates the future for id. It fails if id is already pending or the
// table has been closed, in which case the close reason is returned.
func (p *PendingTable) Add(id string) (*Future, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed != nil {
		return nil, p.closed
	}
	if _, exists := p.entries[id]; exists {
		return nil, ErrDuplicateID
	}
	f := newFuture(id)
	p.entries[id] = &pendingEntry{future: f}
	return f, nil
}

// take removes the entry for id and stops its timer.
func (p *PendingTable) take(id string) *pendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return nil
	}
	delete(p.entries, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	return e
}

// Resolve settles the future for id with value. It returns false when id is
// not pending, which covers duplicate and late delivery.
func (p *PendingTable) Resolve(id string, value any) bool {
	e := p.take(id)
	if e == nil {
		return false
	}
	return e.future.settle(value, nil)
}

// Reject settles the future for id with err.
func (p *PendingTable) Reject(id string, err error) bool {
	e := p.take(id)
	if e == nil {
		return false
	}
	return e.future.settle(nil, err)
}

// SetTimeout arms the timeout slot of a pending request. When d elapses the
// entry is removed and its future rejected with an error matching
// ErrTimeout. Calling it again replaces the previous timeout.
func (p *PendingTable) SetTimeout(id string, d time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		p.mu.Lock()
		current, ok := p.entries[id]
		if !ok || current != e || e.timer != timer {
			p.mu.Unlock()
			return
		}
		delete(p.entries, id)
		p.mu.Unlock()
		e.future.settle(nil, timeoutError(id))
	})
	e.timer = timer
	return true
}

// Len returns the number of pending requests.
func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// RejectAll rejects every pending future with err, stops their timers and
// blocks them so that nothing arriving later can settle them. It returns
// the number of futures rejected.
func (p *PendingTable) RejectAll(err error) int {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*pendingEntry)
	p.mu.Unlock()

	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.future.settle(nil, err)
		e.future.block()
	}
	return len(entries)
}

// Close rejects everything pending with err and makes later Adds fail
// with err.
func (p *PendingTable) Close(err error) int {
	p.mu.Lock()
	if p.closed == nil {
		p.closed = err
	}
	p.mu.Unlock()
	return p.RejectAll(err)
}
