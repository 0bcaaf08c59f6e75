package reducer

import (
	"context"
	"sort"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// dangerousKeys are never valid action names, whatever the reducer map
// contains.
var dangerousKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// IsDangerousKey reports whether key is one of the reserved names.
func IsDangerousKey(key string) bool {
	_, ok := dangerousKeys[key]
	return ok
}

// ActionFunc sends one action with the given arguments.
type ActionFunc func(ctx context.Context, args ...any) error

// Actor turns local action calls into act envelopes. Its dispatch table is
// fixed at construction. Calling an action never changes local state.
type Actor struct {
	providerID string
	transport  transport.Transport
	keys       map[string]struct{}
}

func newActor(providerID string, t transport.Transport, keys []string) *Actor {
	a := &Actor{
		providerID: providerID,
		transport:  t,
		keys:       make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		a.keys[k] = struct{}{}
	}
	return a
}

// validate checks key in order: empty, reserved, absent.
func (a *Actor) validate(key string) error {
	if key == "" {
		return keyError(bridgeerrors.CodeInvalidKey, key)
	}
	if IsDangerousKey(key) {
		return keyError(bridgeerrors.CodeDangerousKey, key)
	}
	if _, ok := a.keys[key]; !ok {
		return keyError(bridgeerrors.CodeUnknownAction, key)
	}
	return nil
}

// Action returns the sender for key, or an error if key is not a valid
// action. Nothing is sent by Action itself.
func (a *Actor) Action(key string) (ActionFunc, error) {
	if err := a.validate(key); err != nil {
		return nil, err
	}
	return func(ctx context.Context, args ...any) error {
		return transport.SafeSend(ctx, a.transport, protocol.NewAct(a.providerID, key, args))
	}, nil
}

// Invoke validates key and sends an act envelope carrying args.
func (a *Actor) Invoke(ctx context.Context, key string, args ...any) error {
	send, err := a.Action(key)
	if err != nil {
		return err
	}
	return send(ctx, args...)
}

// Keys returns the action names in sorted order.
func (a *Actor) Keys() []string {
	keys := make([]string, 0, len(a.keys))
	for k := range a.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProviderID returns the provider the actor sends for.
func (a *Actor) ProviderID() string {
	return a.providerID
}
