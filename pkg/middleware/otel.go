package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "webview-ipc"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "webview-ipc").
	TracerName string

	// IncludeParams records the number of params as a span attribute.
	// Param values are never recorded.
	IncludeParams bool

	// Filter determines which calls to trace.
	// Return true to trace the call, false to skip.
	// If nil, all calls are traced.
	Filter func(call *Call) bool

	// AttributeExtractor extracts custom attributes from the call.
	AttributeExtractor func(call *Call) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeParams enables recording the param count.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithFilter sets a filter function for calls.
func WithFilter(filter func(call *Call) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(call *Call) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:    defaultTracerName,
		IncludeParams: true,
	}
}

// OpenTelemetry creates middleware that starts a span for every call.
//
// The tracer comes from the global provider. Configure it before serving:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return Func(func(ctx context.Context, call *Call, next Next) (any, error) {
		if config.Filter != nil && !config.Filter(call) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("bridge.kind", string(call.Kind)),
			attribute.String("bridge.key", call.Key),
		}
		if call.ProviderID != "" {
			attrs = append(attrs, attribute.String("bridge.provider_id", call.ProviderID))
		}
		if call.Context != nil {
			attrs = append(attrs,
				attribute.String("bridge.view_id", call.Context.ViewID),
				attribute.String("bridge.view_type", call.Context.ViewType),
			)
			if call.Context.SessionID != "" {
				attrs = append(attrs, attribute.String("bridge.session_id", call.Context.SessionID))
			}
		}
		if config.IncludeParams {
			attrs = append(attrs, attribute.Int("bridge.param_count", len(call.Params)))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(call)...)
		}

		spanCtx, span := config.tracer.Start(ctx, spanName(call),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		value, err := next(spanCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return value, err
	})
}

func spanName(call *Call) string {
	if call.Key == "" {
		return fmt.Sprintf("bridge.%s", call.Kind)
	}
	return fmt.Sprintf("bridge.%s %s", call.Kind, call.Key)
}

// SpanFromContext returns the span started by OpenTelemetry for the current
// call, or a no-op span outside of one.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
