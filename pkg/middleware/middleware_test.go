package middleware

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

func recorder(name string, order *[]string) Middleware {
	return Func(func(ctx context.Context, call *Call, next Next) (any, error) {
		*order = append(*order, name+":before")
		v, err := next(ctx)
		*order = append(*order, name+":after")
		return v, err
	})
}

func TestRunOrder(t *testing.T) {
	var order []string
	chain := []Middleware{recorder("outer", &order), recorder("inner", &order)}

	v, err := Run(context.Background(), chain, &Call{Kind: KindRequest, Key: "k"}, func(context.Context) (any, error) {
		order = append(order, "handler")
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("Run() = %v, %v", v, err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRunEmptyChain(t *testing.T) {
	called := false
	_, err := Run(context.Background(), nil, &Call{}, func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}

func TestRunShortCircuit(t *testing.T) {
	deny := errors.New("denied")
	chain := []Middleware{Func(func(ctx context.Context, call *Call, next Next) (any, error) {
		if call.Key == "secret" {
			return nil, deny
		}
		return next(ctx)
	})}

	_, err := Run(context.Background(), chain, &Call{Key: "secret"}, func(context.Context) (any, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})
	if !errors.Is(err, deny) {
		t.Fatalf("err = %v, want %v", err, deny)
	}
}

func TestRunPassesContext(t *testing.T) {
	chain := []Middleware{Func(func(ctx context.Context, call *Call, next Next) (any, error) {
		return next(context.WithValue(ctx, ctxKey{}, "v"))
	})}

	v, _ := Run(context.Background(), chain, &Call{}, func(ctx context.Context) (any, error) {
		return ctx.Value(ctxKey{}), nil
	})
	if v != "v" {
		t.Fatalf("handler saw %v", v)
	}
}

func TestOTelConfig(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != defaultTracerName {
		t.Errorf("TracerName = %q, want %q", config.TracerName, defaultTracerName)
	}
	if !config.IncludeParams {
		t.Error("IncludeParams should be true by default")
	}

	WithTracerName("my-app")(&config)
	WithIncludeParams(false)(&config)
	WithFilter(func(*Call) bool { return false })(&config)
	WithAttributeExtractor(func(*Call) []attribute.KeyValue { return nil })(&config)

	if config.TracerName != "my-app" {
		t.Errorf("TracerName = %q", config.TracerName)
	}
	if config.IncludeParams {
		t.Error("IncludeParams should be false")
	}
	if config.Filter == nil || config.AttributeExtractor == nil {
		t.Error("Filter and AttributeExtractor should be set")
	}
}

func TestSpanName(t *testing.T) {
	tests := []struct {
		call *Call
		want string
	}{
		{&Call{Kind: KindRequest, Key: "fetchData"}, "bridge.request fetchData"},
		{&Call{Kind: KindAction, Key: "increment"}, "bridge.action increment"},
		{&Call{Kind: KindRequest}, "bridge.request"},
	}
	for _, tt := range tests {
		if got := spanName(tt.call); got != tt.want {
			t.Errorf("spanName(%+v) = %q, want %q", tt.call, got, tt.want)
		}
	}
}

func TestOpenTelemetryPropagatesSpan(t *testing.T) {
	extracted := false
	mw := OpenTelemetry(WithAttributeExtractor(func(call *Call) []attribute.KeyValue {
		extracted = true
		return []attribute.KeyValue{attribute.String("test.attr", call.Key)}
	}))

	var inner trace.Span
	v, err := mw.Handle(context.Background(), &Call{Kind: KindRequest, Key: "k", Params: []any{1}}, func(ctx context.Context) (any, error) {
		inner = SpanFromContext(ctx)
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("Handle() = %v, %v", v, err)
	}
	if inner == nil {
		t.Fatal("expected a span in the handler context")
	}
	if !extracted {
		t.Error("attribute extractor was not called")
	}
}

func TestOpenTelemetryErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := OpenTelemetry().Handle(context.Background(), &Call{Kind: KindAction, Key: "a"}, func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	extracted := false
	mw := OpenTelemetry(
		WithFilter(func(call *Call) bool { return call.Key != "healthz" }),
		WithAttributeExtractor(func(*Call) []attribute.KeyValue {
			extracted = true
			return nil
		}),
	)

	base := context.WithValue(context.Background(), ctxKey{}, "base")
	var seen context.Context
	_, err := mw.Handle(base, &Call{Key: "healthz"}, func(ctx context.Context) (any, error) {
		seen = ctx
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != base {
		t.Error("filtered call should receive the original context")
	}
	if extracted {
		t.Error("filtered call should not build attributes")
	}
}
