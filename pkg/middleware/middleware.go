package middleware

import (
	"context"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

// Kind identifies which protocol a call arrived on.
type Kind string

const (
	// KindRequest is an RPC request handled by the RPC dispatcher.
	KindRequest Kind = "request"

	// KindAction is an act envelope handled by an action dispatcher.
	KindAction Kind = "action"
)

// Call describes one handler invocation.
type Call struct {
	Kind Kind

	// Key is the RPC method or action name.
	Key string

	// ProviderID is set for actions only.
	ProviderID string

	Params []any

	// Context is the optional request context sent by the client.
	Context *protocol.RequestContext
}

// Next invokes the rest of the chain.
type Next func(ctx context.Context) (any, error)

// Middleware intercepts handler invocations.
type Middleware interface {
	Handle(ctx context.Context, call *Call, next Next) (any, error)
}

// Func adapts an ordinary function to Middleware.
type Func func(ctx context.Context, call *Call, next Next) (any, error)

// Handle implements Middleware.
func (f Func) Handle(ctx context.Context, call *Call, next Next) (any, error) {
	return f(ctx, call, next)
}

// Run executes final through chain. The first middleware is the outermost.
func Run(ctx context.Context, chain []Middleware, call *Call, final Next) (any, error) {
	if len(chain) == 0 {
		return final(ctx)
	}
	mw := chain[0]
	rest := chain[1:]
	return mw.Handle(ctx, call, func(ctx context.Context) (any, error) {
		return Run(ctx, rest, call, final)
	})
}
