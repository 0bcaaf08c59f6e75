// Package server exposes a host.Provider over HTTP.
//
// Views connect to the WebSocket endpoint, optionally naming themselves
// with a viewId query parameter:
//
//	ws://localhost:7331/ws?viewId=sidebar
//
// Every connection is attached to the provider, so the views receive
// broadcasts and their requests, actions and log lines are routed like
// those of any other transport.
//
// The same RPC handlers are also reachable without a WebSocket through a
// JSON-RPC 2.0 endpoint:
//
//	POST /rpc
//	{"jsonrpc":"2.0","method":"Bridge.Call","params":{"key":"echo","params":["hi"]},"id":1}
//
// Bridge.Keys lists the registered handler keys. /metrics serves the
// Prometheus registry and /healthz reports the number of attached views.
package server
