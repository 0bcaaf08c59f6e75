// Package action runs host-side delegates for act envelopes and answers
// each one with a patch envelope for the same provider and key.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
	"github.com/hbmartin/webview-ipc/pkg/middleware"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/reducer"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Delegate performs one action. Its result is the patch sent to the client.
type Delegate func(ctx context.Context, params []any) (any, error)

type options struct {
	logger     *slog.Logger
	middleware []middleware.Middleware
}

// Option configures a Dispatcher.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMiddleware appends to the delegate chain.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// Dispatcher serves the actions of one provider.
type Dispatcher struct {
	providerID string
	delegates  map[string]Delegate
	chain      []middleware.Middleware
	logger     *slog.Logger
}

// NewDispatcher returns a dispatcher for providerID. The delegate map is
// copied and fixed from then on.
func NewDispatcher(providerID string, delegates map[string]Delegate, opts ...Option) (*Dispatcher, error) {
	if providerID == "" {
		return nil, ErrMissingProvider
	}
	table := make(map[string]Delegate, len(delegates))
	for k, fn := range delegates {
		if k == "" || reducer.IsDangerousKey(k) || fn == nil {
			return nil, bridgeerrors.New(bridgeerrors.CodeInvalidKey).WithSubject(k)
		}
		table[k] = fn
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{
		providerID: providerID,
		delegates:  table,
		chain:      o.middleware,
		logger:     o.logger.With("provider", providerID),
	}, nil
}

// ProviderID returns the provider this dispatcher serves.
func (d *Dispatcher) ProviderID() string {
	return d.providerID
}

// Keys returns the action names in sorted order.
func (d *Dispatcher) Keys() []string {
	keys := make([]string, 0, len(d.delegates))
	for k := range d.delegates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Accepts returns msg as an act envelope if it is one addressed to this
// provider.
func (d *Dispatcher) Accepts(msg any) (*protocol.Act, bool) {
	act, ok := protocol.ParseAct(msg)
	if !ok || act.ProviderID != d.providerID {
		return nil, false
	}
	return act, true
}

// Handle runs the delegate for act and sends the resulting patch over t,
// even when the patch is nil.
//
// An unknown key returns a *FatalError and sends nothing. A delegate error
// returns a *DelegateError and sends nothing.
func (d *Dispatcher) Handle(ctx context.Context, t transport.Transport, act *protocol.Act) error {
	delegate, ok := d.delegates[act.Key]
	if !ok {
		return &FatalError{
			ProviderID: d.providerID,
			Key:        act.Key,
			Err:        bridgeerrors.New(bridgeerrors.CodeUnknownDelegate).WithSubject(act.Key),
		}
	}

	call := &middleware.Call{
		Kind:       middleware.KindAction,
		Key:        act.Key,
		ProviderID: d.providerID,
		Params:     act.Params,
	}
	patch, err := middleware.Run(ctx, d.chain, call, func(ctx context.Context) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = bridgeerrors.New(bridgeerrors.CodeHandlerPanic).WithSubject(act.Key).Wrap(fmt.Errorf("%v", r))
			}
		}()
		return delegate(ctx, act.Params)
	})
	if err != nil {
		return &DelegateError{ProviderID: d.providerID, Key: act.Key, Err: err}
	}

	return transport.SafeSend(ctx, t, protocol.NewPatch(d.providerID, act.Key, patch))
}

// HandleMessage handles msg if Accepts takes it and reports whether it did.
func (d *Dispatcher) HandleMessage(ctx context.Context, t transport.Transport, msg any) (bool, error) {
	act, ok := d.Accepts(msg)
	if !ok {
		return false, nil
	}
	return true, d.Handle(ctx, t, act)
}
