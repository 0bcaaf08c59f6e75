package action

import (
	"fmt"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
)

var (
	// ErrUnknownAction is wrapped by the FatalError returned for an act
	// envelope naming an action with no delegate.
	ErrUnknownAction = bridgeerrors.New(bridgeerrors.CodeUnknownDelegate)

	// ErrMissingProvider is returned by NewDispatcher for an empty id.
	ErrMissingProvider = bridgeerrors.New(bridgeerrors.CodeMissingProvider)

	// ErrInvalidKey is returned by NewDispatcher for an empty or reserved
	// action name, or a nil delegate.
	ErrInvalidKey = bridgeerrors.New(bridgeerrors.CodeInvalidKey)

	// ErrDelegatePanic is wrapped around a recovered delegate panic.
	ErrDelegatePanic = bridgeerrors.New(bridgeerrors.CodeHandlerPanic)
)

// FatalError reports a contract mismatch between the client's actions and
// the host's delegates. It is a programming defect, not a runtime condition,
// and no patch is sent for it.
type FatalError struct {
	ProviderID string
	Key        string
	Err        error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("action: provider %s: fatal: %v", e.ProviderID, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// DelegateError wraps an error returned by a delegate.
type DelegateError struct {
	ProviderID string
	Key        string
	Err        error
}

func (e *DelegateError) Error() string {
	return fmt.Sprintf("action: %s.%s: %v", e.ProviderID, e.Key, e.Err)
}

func (e *DelegateError) Unwrap() error {
	return e.Err
}
