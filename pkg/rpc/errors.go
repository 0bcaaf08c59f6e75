package rpc

import (
	"errors"
	"fmt"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
)

var (
	// ErrMissingTransport is returned by NewClient when no transport is given.
	ErrMissingTransport = bridgeerrors.New(bridgeerrors.CodeMissingTransport)

	// ErrDisposed rejects every request outstanding when the client is
	// disposed, and every request sent afterwards.
	ErrDisposed = bridgeerrors.New(bridgeerrors.CodeDisposed)

	// ErrTimeout rejects a request whose timeout slot fired.
	ErrTimeout = bridgeerrors.New(bridgeerrors.CodeTimeout)

	// ErrUnknownHandler is wrapped by UnknownKeyError.
	ErrUnknownHandler = bridgeerrors.New(bridgeerrors.CodeUnknownHandler)

	// ErrHandlerPanic is wrapped around a recovered handler panic.
	ErrHandlerPanic = bridgeerrors.New(bridgeerrors.CodeHandlerPanic)

	// ErrDuplicateID is returned when a request id is already pending.
	ErrDuplicateID = errors.New("rpc: duplicate request id")
)

// RemoteError is the rejection reason for a request the host answered with
// an error envelope. Its message is exactly the host's message.
type RemoteError struct {
	ID      string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// UnknownKeyError is returned by Dispatcher.Invoke for an unregistered key.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("rpc: no handler registered for %q", e.Key)
}

// Unwrap returns ErrUnknownHandler.
func (e *UnknownKeyError) Unwrap() error {
	return ErrUnknownHandler
}

func timeoutError(id string) error {
	return bridgeerrors.New(bridgeerrors.CodeTimeout).WithSubject(id)
}

func panicError(key string, r any) error {
	be := bridgeerrors.New(bridgeerrors.CodeHandlerPanic).WithSubject(key)
	if err, ok := r.(error); ok {
		return be.Wrap(err)
	}
	return be.Wrap(fmt.Errorf("%v", r))
}
