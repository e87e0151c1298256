package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bgribble/flopsy/store"
)

// tracerName is the instrumentation scope name for flopsy tracing.
const tracerName = "github.com/bgribble/flopsy"

// Tracing returns middleware that wraps each dispatch in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// Span attributes include: flopsy.store.type, flopsy.store.id,
// flopsy.action.type, flopsy.action.id. On error, the span status is set
// to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) error {
		ctx, span := tracer.Start(ctx, "flopsy.dispatch",
			trace.WithAttributes(
				attribute.String("flopsy.store.type", s.StoreType()),
				attribute.String("flopsy.store.id", s.ID()),
				attribute.String("flopsy.action.type", a.Type),
				attribute.String("flopsy.action.id", a.ID.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
