package server

import "errors"

var (
	// ErrServerClosed is returned by ListenAndServe and Serve after Shutdown.
	ErrServerClosed = errors.New("server: closed")

	// ErrNoDispatcher is returned by the JSON-RPC gateway when the provider
	// has no RPC dispatcher.
	ErrNoDispatcher = errors.New("server: provider has no rpc dispatcher")
)
