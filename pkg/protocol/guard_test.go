package protocol

import (
	"testing"
)

func validContext() map[string]any {
	return map[string]any{"viewId": "v1", "viewType": "panel", "timestamp": float64(1700000000000)}
}

func TestGuardsRejectNonObjects(t *testing.T) {
	guards := map[string]func(any) bool{
		"request":  IsRequest,
		"response": IsResponse,
		"error":    IsError,
		"event":    IsEvent,
		"act":      IsAct,
		"patch":    IsPatch,
		"log":      IsLog,
		"context":  IsRequestContext,
	}
	inputs := []any{
		nil,
		"request",
		float64(1),
		true,
		[]any{map[string]any{"type": "request"}},
		map[string]any(nil),
		struct{ Type string }{Type: "request"},
	}

	for name, guard := range guards {
		for _, in := range inputs {
			if guard(in) {
				t.Errorf("%s guard accepted %#v", name, in)
			}
		}
	}
}

func TestIsRequest(t *testing.T) {
	tests := []struct {
		name string
		msg  map[string]any
		want bool
	}{
		{"minimal", map[string]any{"type": "request", "id": "r1", "key": "k", "params": []any{}}, true},
		{"with context", map[string]any{"type": "request", "id": "r1", "key": "k", "params": []any{"x"}, "context": validContext()}, true},
		{"extra properties", map[string]any{"type": "request", "id": "r1", "key": "k", "params": []any{}, "trace": "abc"}, true},
		{"wrong type", map[string]any{"type": "Request", "id": "r1", "key": "k", "params": []any{}}, false},
		{"missing id", map[string]any{"type": "request", "key": "k", "params": []any{}}, false},
		{"numeric id", map[string]any{"type": "request", "id": float64(1), "key": "k", "params": []any{}}, false},
		{"params object", map[string]any{"type": "request", "id": "r1", "key": "k", "params": map[string]any{}}, false},
		{"params null", map[string]any{"type": "request", "id": "r1", "key": "k", "params": nil}, false},
		{"context null", map[string]any{"type": "request", "id": "r1", "key": "k", "params": []any{}, "context": nil}, false},
		{"context missing timestamp", map[string]any{"type": "request", "id": "r1", "key": "k", "params": []any{}, "context": map[string]any{"viewId": "v", "viewType": "t"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRequest(tt.msg); got != tt.want {
				t.Errorf("IsRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRequestContext(t *testing.T) {
	ctx := validContext()
	if !IsRequestContext(ctx) {
		t.Fatal("valid context rejected")
	}

	ctx["sessionId"] = "s1"
	if !IsRequestContext(ctx) {
		t.Error("context with string sessionId rejected")
	}

	ctx["sessionId"] = float64(1)
	if IsRequestContext(ctx) {
		t.Error("context with numeric sessionId accepted")
	}

	bad := validContext()
	bad["timestamp"] = "1700000000000"
	if IsRequestContext(bad) {
		t.Error("context with string timestamp accepted")
	}
}

func TestIsResponseAndError(t *testing.T) {
	if !IsResponse(map[string]any{"type": "response", "id": "r1"}) {
		t.Error("response without value rejected")
	}
	if !IsResponse(map[string]any{"type": "response", "id": "r1", "value": map[string]any{"data": "x"}}) {
		t.Error("response with value rejected")
	}
	if IsResponse(map[string]any{"type": "response"}) {
		t.Error("response without id accepted")
	}

	if !IsError(map[string]any{"type": "error", "id": "r1", "value": "boom"}) {
		t.Error("error rejected")
	}
	if IsError(map[string]any{"type": "error", "id": "r1"}) {
		t.Error("error without value accepted")
	}
	if IsError(map[string]any{"type": "error", "id": "r1", "value": map[string]any{"message": "boom"}}) {
		t.Error("error with object value accepted")
	}
}

func TestIsEventActPatch(t *testing.T) {
	tests := []struct {
		name  string
		guard func(any) bool
		msg   map[string]any
		want  bool
	}{
		{"event", IsEvent, map[string]any{"type": "event", "key": "tick", "value": []any{float64(1)}}, true},
		{"event value object", IsEvent, map[string]any{"type": "event", "key": "tick", "value": map[string]any{}}, false},
		{"act", IsAct, map[string]any{"type": "act", "providerId": "p", "key": "inc", "params": []any{}}, true},
		{"act missing provider", IsAct, map[string]any{"type": "act", "key": "inc", "params": []any{}}, false},
		{"patch", IsPatch, map[string]any{"type": "patch", "providerId": "p", "key": "inc", "patch": float64(1)}, true},
		{"patch null payload", IsPatch, map[string]any{"type": "patch", "providerId": "p", "key": "inc", "patch": nil}, true},
		{"patch missing payload field", IsPatch, map[string]any{"type": "patch", "providerId": "p", "key": "inc"}, false},
		{"patch numeric key", IsPatch, map[string]any{"type": "patch", "providerId": "p", "key": float64(1), "patch": nil}, false},
		{"act is not patch", IsPatch, map[string]any{"type": "act", "providerId": "p", "key": "inc", "params": []any{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.guard(tt.msg); got != tt.want {
				t.Errorf("guard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !IsLog(map[string]any{"type": "log", "level": level, "message": "m"}) {
			t.Errorf("level %q rejected", level)
		}
	}
	if IsLog(map[string]any{"type": "log", "level": "fatal", "message": "m"}) {
		t.Error("unknown level accepted")
	}
	if IsLog(map[string]any{"type": "log", "level": "info"}) {
		t.Error("log without message accepted")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  any
		want Type
	}{
		{map[string]any{"type": "request", "id": "r", "key": "k", "params": []any{}}, TypeRequest},
		{map[string]any{"type": "response", "id": "r"}, TypeResponse},
		{map[string]any{"type": "error", "id": "r", "value": "x"}, TypeError},
		{map[string]any{"type": "event", "key": "k", "value": []any{}}, TypeEvent},
		{map[string]any{"type": "act", "providerId": "p", "key": "k", "params": []any{}}, TypeAct},
		{map[string]any{"type": "patch", "providerId": "p", "key": "k", "patch": nil}, TypePatch},
		{map[string]any{"type": "patch", "providerId": "p", "key": "k"}, ""},
		{map[string]any{"type": "log", "level": "info", "message": "m"}, TypeLog},
		{map[string]any{"type": "unknown"}, ""},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Classify(tt.msg); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
