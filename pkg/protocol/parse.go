package protocol

import (
	"encoding/json"
	"math"
)

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int64(n)
	case float32:
		return int64(n)
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return int64(f)
	default:
		return 0
	}
}

func parseRequestContext(v any) *RequestContext {
	m := v.(map[string]any)
	rc := &RequestContext{
		ViewID:    m["viewId"].(string),
		ViewType:  m["viewType"].(string),
		Timestamp: toInt64(m["timestamp"]),
	}
	if sid, ok := m["sessionId"].(string); ok {
		rc.SessionID = sid
	}
	return rc
}

// ParseRequestContext converts v when it is a well-formed request context.
func ParseRequestContext(v any) (*RequestContext, bool) {
	if !IsRequestContext(v) {
		return nil, false
	}
	return parseRequestContext(v), true
}

// ParseRequest converts v when it is a request envelope.
func ParseRequest(v any) (*Request, bool) {
	if !IsRequest(v) {
		return nil, false
	}
	m := v.(map[string]any)
	req := &Request{
		Type:   TypeRequest,
		ID:     m["id"].(string),
		Key:    m["key"].(string),
		Params: m["params"].([]any),
	}
	if ctx, present := m["context"]; present {
		req.Context = parseRequestContext(ctx)
	}
	return req, true
}

// ParseResponse converts v when it is a response envelope.
func ParseResponse(v any) (*Response, bool) {
	if !IsResponse(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Response{Type: TypeResponse, ID: m["id"].(string), Value: m["value"]}, true
}

// ParseError converts v when it is an error envelope.
func ParseError(v any) (*Error, bool) {
	if !IsError(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Error{Type: TypeError, ID: m["id"].(string), Value: m["value"].(string)}, true
}

// ParseEvent converts v when it is an event envelope.
func ParseEvent(v any) (*Event, bool) {
	if !IsEvent(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Event{Type: TypeEvent, Key: m["key"].(string), Value: m["value"].([]any)}, true
}

// ParseAct converts v when it is an act envelope.
func ParseAct(v any) (*Act, bool) {
	if !IsAct(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Act{
		Type:       TypeAct,
		ProviderID: m["providerId"].(string),
		Key:        m["key"].(string),
		Params:     m["params"].([]any),
	}, true
}

// ParsePatch converts v when it is a patch envelope.
func ParsePatch(v any) (*Patch, bool) {
	if !IsPatch(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Patch{
		Type:       TypePatch,
		ProviderID: m["providerId"].(string),
		Key:        m["key"].(string),
		Patch:      m["patch"],
	}, true
}

// ParseLog converts v when it is a log envelope.
func ParseLog(v any) (*Log, bool) {
	if !IsLog(v) {
		return nil, false
	}
	m := v.(map[string]any)
	return &Log{
		Type:    TypeLog,
		Level:   LogLevel(m["level"].(string)),
		Message: m["message"].(string),
		Data:    m["data"],
	}, true
}
