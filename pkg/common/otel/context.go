package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const zeroTraceID = "00000000000000000000000000000000"

type tracerKey struct{}

// GetTraceID returns the trace id from the current span context.
func GetTraceID(ctx context.Context) string {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return zeroTraceID
}

// InjectTracing stores the tracer in the context so request-scoped code can
// open child spans without carrying the tracer explicitly.
func InjectTracing(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// GetTracer returns the tracer stored by InjectTracing, or a noop tracer.
func GetTracer(ctx context.Context) trace.Tracer {
	if tracer, ok := ctx.Value(tracerKey{}).(trace.Tracer); ok {
		return tracer
	}
	return noop.NewTracerProvider().Tracer("")
}
