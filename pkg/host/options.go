package host

import (
	"context"
	"log/slog"

	"github.com/hbmartin/webview-ipc/pkg/action"
	"github.com/hbmartin/webview-ipc/pkg/logsink"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Observer is notified of registry changes. middleware.Metrics implements it.
type Observer interface {
	ViewsChanged(n int)
	BroadcastDone(key string, delivered, failed int)
}

// GenericHandler receives every message the provider does not route
// itself.
type GenericHandler func(ctx context.Context, viewID string, t transport.Transport, msg any)

type options struct {
	logger   *slog.Logger
	observer Observer
	actions  *action.Dispatcher
	rpc      *rpc.Dispatcher
	sink     logsink.Sink
	generic  GenericHandler
	onError  func(error)
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// Option configures a Registry or a Provider. Options that do not apply to
// a Registry are ignored by NewRegistry.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver reports registry changes to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithActions routes act envelopes for d's provider id to d.
func WithActions(d *action.Dispatcher) Option {
	return func(o *options) {
		o.actions = d
	}
}

// WithRPC routes request envelopes to d.
func WithRPC(d *rpc.Dispatcher) Option {
	return func(o *options) {
		o.rpc = d
	}
}

// WithLogSink writes forwarded log envelopes to sink. The default writes
// them to the provider's logger.
func WithLogSink(sink logsink.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithGenericHandler receives messages that are neither logs, acts for this
// provider nor requests handled by the RPC dispatcher.
func WithGenericHandler(fn GenericHandler) Option {
	return func(o *options) {
		o.generic = fn
	}
}

// WithErrorHandler receives routing failures, including the fatal error
// for an act naming an unknown action.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
