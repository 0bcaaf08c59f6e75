// Package reducer keeps client-side state for one provider in step with the
// host.
//
// A Store sends actions to the host through its Actor and folds the patches
// the host sends back into its state with pure reducers. Several stores may
// share one transport; each only accepts patches carrying its provider id.
//
//	store, err := reducer.New("counter", t, Counter{}, reducer.Reducers[Counter]{
//	    "increment": func(s Counter, p any) Counter { return Counter{Count: s.Count + int(p.(float64))} },
//	})
//	store.Mount()
//	defer store.Unmount()
//	store.Actor().Invoke(ctx, "increment")
package reducer

import (
	"log/slog"
	"sync"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Reducer computes the next state from the previous one and a patch. The
// returned value replaces the state in full.
type Reducer[S any] func(prev S, patch any) S

// Reducers maps action names to reducers.
type Reducers[S any] map[string]Reducer[S]

type options struct {
	logger  *slog.Logger
	onError func(error)
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithErrorHandler receives errors raised while handling inbound messages
// on the subscription, such as a patch for an unknown key. The default
// logs them at error level.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// Store holds the state of one provider.
type Store[S any] struct {
	providerID string
	transport  transport.Transport
	reducers   map[string]Reducer[S]
	actor      *Actor
	logger     *slog.Logger
	onError    func(error)

	init     func() S
	initOnce sync.Once

	mu    sync.RWMutex
	state S

	watchMu  sync.Mutex
	watchers map[uint64]func(S)
	nextID   uint64

	subMu       sync.Mutex
	unsubscribe func()
}

// New returns a store starting at initial.
func New[S any](providerID string, t transport.Transport, initial S, reducers Reducers[S], opts ...Option) (*Store[S], error) {
	return NewLazy(providerID, t, func() S { return initial }, reducers, opts...)
}

// NewLazy returns a store whose initial state is computed by init on first
// use. init runs at most once.
func NewLazy[S any](providerID string, t transport.Transport, init func() S, reducers Reducers[S], opts ...Option) (*Store[S], error) {
	if t == nil {
		return nil, ErrMissingTransport
	}
	if providerID == "" {
		return nil, ErrMissingProvider
	}

	keys := make([]string, 0, len(reducers))
	table := make(map[string]Reducer[S], len(reducers))
	for k, r := range reducers {
		switch {
		case k == "":
			return nil, keyError(bridgeerrors.CodeInvalidKey, k)
		case IsDangerousKey(k):
			return nil, keyError(bridgeerrors.CodeDangerousKey, k)
		case r == nil:
			return nil, keyError(bridgeerrors.CodeInvalidKey, k).WithDetail("reducer is nil")
		}
		keys = append(keys, k)
		table[k] = r
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[S]{
		providerID: providerID,
		transport:  t,
		reducers:   table,
		actor:      newActor(providerID, t, keys),
		logger:     o.logger.With("provider", providerID),
		onError:    o.onError,
		init:       init,
		watchers:   make(map[uint64]func(S)),
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Error("patch rejected", "error", err)
		}
	}
	return s, nil
}

func (s *Store[S]) ensureInit() {
	s.initOnce.Do(func() {
		if s.init == nil {
			return
		}
		v := s.init()
		s.mu.Lock()
		s.state = v
		s.mu.Unlock()
	})
}

// ProviderID returns the id the store is bound to.
func (s *Store[S]) ProviderID() string {
	return s.providerID
}

// Actor returns the store's action sender.
func (s *Store[S]) Actor() *Actor {
	return s.actor
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.ensureInit()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// HandleMessage applies msg if it is a patch for this provider. Other
// messages are ignored. A patch whose key has no reducer returns an error
// matching ErrUnknownPatch and leaves the state unchanged.
func (s *Store[S]) HandleMessage(msg any) error {
	p, ok := protocol.ParsePatch(msg)
	if !ok || p.ProviderID != s.providerID {
		return nil
	}
	r, ok := s.reducers[p.Key]
	if !ok {
		return providerError(s.providerID, keyError(bridgeerrors.CodeUnknownPatch, p.Key))
	}

	s.ensureInit()
	next, err := s.apply(p.Key, r, p.Patch)
	if err != nil {
		return providerError(s.providerID, err)
	}
	s.notify(next)
	return nil
}

func (s *Store[S]) apply(key string, r Reducer[S], patch any) (next S, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = reducerPanic(key, rec)
		}
	}()
	next = r(s.state, patch)
	s.state = next
	return next, nil
}

// Watch registers fn to receive the state after every applied patch.
func (s *Store[S]) Watch(fn func(S)) (cancel func()) {
	s.watchMu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Store[S]) notify(state S) {
	s.watchMu.Lock()
	fns := make([]func(S), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		s.safeWatch(fn, state)
	}
}

func (s *Store[S]) safeWatch(fn func(S), state S) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state watcher panicked", "panic", r)
		}
	}()
	fn(state)
}

// Mount subscribes the store to its transport. Calling it again while
// mounted does nothing.
func (s *Store[S]) Mount() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.unsubscribe != nil {
		return nil
	}
	s.unsubscribe = s.transport.Subscribe(func(msg any) {
		if err := s.HandleMessage(msg); err != nil {
			s.onError(err)
		}
	})
	return nil
}

// Unmount releases the subscription. The store may be mounted again.
func (s *Store[S]) Unmount() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Mounted reports whether the store is subscribed.
func (s *Store[S]) Mounted() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.unsubscribe != nil
}
