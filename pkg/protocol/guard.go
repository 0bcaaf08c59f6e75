package protocol

import "encoding/json"

// object returns v as a JSON object. Arrays and nil are not objects.
func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

func hasType(m map[string]any, t Type) bool {
	s, ok := m["type"].(string)
	return ok && s == string(t)
}

func isString(m map[string]any, key string) bool {
	_, ok := m[key].(string)
	return ok
}

func isArray(m map[string]any, key string) bool {
	a, ok := m[key].([]any)
	return ok && a != nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}

// IsRequestContext reports whether v is a well-formed request context.
func IsRequestContext(v any) bool {
	m, ok := object(v)
	if !ok {
		return false
	}
	if !isString(m, "viewId") || !isString(m, "viewType") || !isNumber(m["timestamp"]) {
		return false
	}
	if sid, present := m["sessionId"]; present {
		if _, ok := sid.(string); !ok {
			return false
		}
	}
	return true
}

// IsRequest reports whether v is a request envelope.
func IsRequest(v any) bool {
	m, ok := object(v)
	if !ok || !hasType(m, TypeRequest) {
		return false
	}
	if !isString(m, "id") || !isString(m, "key") || !isArray(m, "params") {
		return false
	}
	if ctx, present := m["context"]; present && !IsRequestContext(ctx) {
		return false
	}
	return true
}

// IsResponse reports whether v is a response envelope.
func IsResponse(v any) bool {
	m, ok := object(v)
	return ok && hasType(m, TypeResponse) && isString(m, "id")
}

// IsError reports whether v is an error envelope.
func IsError(v any) bool {
	m, ok := object(v)
	return ok && hasType(m, TypeError) && isString(m, "id") && isString(m, "value")
}

// IsEvent reports whether v is an event envelope.
func IsEvent(v any) bool {
	m, ok := object(v)
	return ok && hasType(m, TypeEvent) && isString(m, "key") && isArray(m, "value")
}

// IsAct reports whether v is an act envelope.
func IsAct(v any) bool {
	m, ok := object(v)
	return ok && hasType(m, TypeAct) &&
		isString(m, "providerId") && isString(m, "key") && isArray(m, "params")
}

// IsPatch reports whether v is a patch envelope. The patch field must be
// present; null is a valid payload.
func IsPatch(v any) bool {
	m, ok := object(v)
	if !ok || !hasType(m, TypePatch) || !isString(m, "providerId") || !isString(m, "key") {
		return false
	}
	_, present := m["patch"]
	return present
}

// IsLog reports whether v is a log envelope.
func IsLog(v any) bool {
	m, ok := object(v)
	if !ok || !hasType(m, TypeLog) || !isString(m, "message") {
		return false
	}
	level, ok := m["level"].(string)
	return ok && LogLevel(level).Valid()
}

// Classify returns the type of a valid envelope, or "" when v is not one.
func Classify(v any) Type {
	switch {
	case IsRequest(v):
		return TypeRequest
	case IsResponse(v):
		return TypeResponse
	case IsError(v):
		return TypeError
	case IsEvent(v):
		return TypeEvent
	case IsAct(v):
		return TypeAct
	case IsPatch(v):
		return TypePatch
	case IsLog(v):
		return TypeLog
	default:
		return ""
	}
}
