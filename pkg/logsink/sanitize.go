package logsink

import (
	"strings"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

// Unserializable replaces a payload that cannot cross the transport.
const Unserializable = "unserializable data"

// disallowedKeys are dropped from every payload, compared in lower case.
var disallowedKeys = map[string]struct{}{
	"password":  {},
	"secret":    {},
	"token":     {},
	"apikey":    {},
	"apisecret": {},
	"content":   {},
}

// Sanitize returns a copy of v with every disallowed key removed from maps at
// any depth, including maps nested inside slices. v is not modified.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if isDisallowed(k) {
				continue
			}
			out[k] = Sanitize(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Sanitize(child)
		}
		return out
	default:
		return v
	}
}

func isDisallowed(key string) bool {
	_, ok := disallowedKeys[strings.ToLower(key)]
	return ok
}

// Prepare turns an arbitrary payload into a sanitized plain tree ready to be
// logged or sent. Payloads that cannot be cloned become Unserializable.
func Prepare(data any) any {
	if data == nil {
		return nil
	}
	plain, err := protocol.Clone(data)
	if err != nil {
		return Unserializable
	}
	return Sanitize(plain)
}
