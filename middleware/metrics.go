package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bgribble/flopsy/store"
)

// meterName is the instrumentation scope name for flopsy metrics.
const meterName = "github.com/bgribble/flopsy"

// Metrics returns middleware that records per-dispatch metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - flopsy.dispatch.duration (Float64Histogram): reducer pass time in
//     seconds, with attributes: store_type, action_type, status
//     ("ok" or "error")
//   - flopsy.dispatch.count (Int64Counter): total dispatches, with
//     attributes: store_type, action_type, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"flopsy.dispatch.duration",
		metric.WithDescription("Duration of the reducer pass in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	dispatches, cErr := meter.Int64Counter(
		"flopsy.dispatch.count",
		metric.WithDescription("Total number of dispatched actions"),
		metric.WithUnit("{dispatch}"),
	)
	_ = cErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("store_type", s.StoreType()),
			attribute.String("action_type", a.Type),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		dispatches.Add(ctx, 1, attrs)

		return err
	}
}
