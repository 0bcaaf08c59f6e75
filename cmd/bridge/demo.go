package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/host"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
)

// demoHandlers are the RPC handlers served by "bridge serve".
func demoHandlers() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		"echo": func(_ context.Context, params []any) (any, error) {
			return params, nil
		},
		"time": func(ctx context.Context, _ []any) (any, error) {
			out := map[string]any{"now": time.Now().UTC().Format(time.RFC3339Nano)}
			if rc, ok := host.ViewFrom(ctx); ok {
				out["viewId"] = rc.ViewID
			}
			return out, nil
		},
		"add": func(_ context.Context, params []any) (any, error) {
			var sum float64
			for i, p := range params {
				n, ok := p.(float64)
				if !ok {
					return nil, fmt.Errorf("add: param %d is %T, not a number", i, p)
				}
				sum += n
			}
			return sum, nil
		},
	}
}

// counter is the host-side state behind the demo provider's actions. Each
// delegate returns the new total, which views apply as their state.
type counter struct {
	mu    sync.Mutex
	total float64
}

func (c *counter) increment(_ context.Context, params []any) (any, error) {
	step := 1.0
	if len(params) > 0 {
		n, ok := params[0].(float64)
		if !ok {
			return nil, fmt.Errorf("increment: step is %T, not a number", params[0])
		}
		step = n
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += step
	return c.total, nil
}

func (c *counter) reset(context.Context, []any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
	return c.total, nil
}

// applyTotal is the view-side reducer for both demo actions.
func applyTotal(prev float64, patch any) float64 {
	if n, ok := patch.(float64); ok {
		return n
	}
	return prev
}
