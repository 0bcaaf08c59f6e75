package reducer

import (
	"fmt"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
)

// Sentinels for errors.Is. Errors returned by this package carry the
// offending key as their subject and match these by code.
var (
	ErrMissingTransport = bridgeerrors.New(bridgeerrors.CodeMissingTransport)
	ErrMissingProvider  = bridgeerrors.New(bridgeerrors.CodeMissingProvider)
	ErrInvalidKey       = bridgeerrors.New(bridgeerrors.CodeInvalidKey)
	ErrDangerousKey     = bridgeerrors.New(bridgeerrors.CodeDangerousKey)
	ErrUnknownAction    = bridgeerrors.New(bridgeerrors.CodeUnknownAction)
	ErrUnknownPatch     = bridgeerrors.New(bridgeerrors.CodeUnknownPatch)
)

func keyError(code, key string) *bridgeerrors.BridgeError {
	return bridgeerrors.New(code).WithSubject(key)
}

func reducerPanic(key string, r any) error {
	return bridgeerrors.Newf(bridgeerrors.CategoryClient, "reducer %q panicked: %v", key, r)
}

// providerError wraps a patch error with the store it was raised in.
func providerError(providerID string, err error) error {
	return fmt.Errorf("reducer: provider %s: %w", providerID, err)
}
