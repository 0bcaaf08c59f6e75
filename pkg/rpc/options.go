package rpc

import (
	"log/slog"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/middleware"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

type options struct {
	logger         *slog.Logger
	defaultTimeout time.Duration
	requestContext *protocol.RequestContext
	middleware     []middleware.Middleware
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// Option configures a Client or a Dispatcher. Options that do not apply to
// the component they are passed to are ignored.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultTimeout arms the timeout slot of every request the client
// sends. Zero, the default, leaves timeouts to the caller.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) {
		o.defaultTimeout = d
	}
}

// WithRequestContext sets the context attached to requests made with
// Client.Call.
func WithRequestContext(rc *protocol.RequestContext) Option {
	return func(o *options) {
		o.requestContext = rc
	}
}

// WithMiddleware appends to the dispatcher's handler chain.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}
