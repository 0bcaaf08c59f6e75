// Package middleware wraps host-side handler invocations with cross-cutting
// behaviour.
//
// Both the RPC dispatcher and the action dispatcher run every call through a
// chain of Middleware before invoking the user handler. A Call describes what
// is being invoked:
//
//	mw := middleware.Func(func(ctx context.Context, call *middleware.Call, next middleware.Next) (any, error) {
//	    slog.Info("call", "kind", call.Kind, "key", call.Key)
//	    return next(ctx)
//	})
//
// # Prometheus Metrics
//
// Metrics is both a middleware and a view-registry observer. It records:
//   - bridge_calls_total: calls by kind, key and status
//   - bridge_call_duration_seconds: handler duration histogram
//   - bridge_call_errors_total: failed calls by kind, key and error type
//   - bridge_registered_views: connected views
//   - bridge_broadcasts_total / bridge_broadcast_failures_total
//
//	m := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	rpcDispatcher := rpc.NewDispatcher(handlers, rpc.WithMiddleware(m))
//
// # OpenTelemetry
//
// OpenTelemetry starts one server span per call using the global tracer
// provider. The span context is passed to the handler through ctx so that
// downstream clients inherit the trace.
package middleware
