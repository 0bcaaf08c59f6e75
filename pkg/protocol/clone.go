package protocol

import (
	"encoding/json"

	"github.com/hbmartin/webview-ipc/internal/errors"
)

var (
	// ErrNotCloneable is returned when a value cannot cross the transport.
	ErrNotCloneable = errors.New(errors.CodeNotCloneable)

	// ErrMalformed is returned when inbound bytes are not valid JSON.
	ErrMalformed = errors.New(errors.CodeMalformedMessage)
)

// Clone returns a plain copy of v as a receiver on the other side of the
// transport would see it. Typed envelopes become map[string]any trees and
// numbers become float64.
func Clone(v any) (any, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.New(errors.CodeNotCloneable).Wrap(err)
	}
	return out, nil
}

// Encode serializes v for a byte-oriented transport.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New(errors.CodeNotCloneable).Wrap(err)
	}
	return data, nil
}

// Decode parses bytes received from a byte-oriented transport.
func Decode(data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.New(errors.CodeMalformedMessage).Wrap(err)
	}
	return out, nil
}
