package saga

import (
	"context"
	"errors"
	"time"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/backoff"
	"github.com/bgribble/flopsy/store"
)

// Effect is a saga callback. It is invoked once per qualifying dispatch
// with the store, the triggering action, and the state diff, and returns a
// fresh stream of follow-up actions. Effects run on scheduler task
// goroutines; errors from the stream are logged and swallowed by the
// scheduler, never propagated to the dispatching caller.
type Effect func(ctx context.Context, s *store.Store, a store.Action, diff store.Diff) Stream

// Emit adapts a plain function returning follow-up actions into an Effect.
func Emit(fn func(s *store.Store, a store.Action, diff store.Diff) []store.Action) Effect {
	return func(_ context.Context, s *store.Store, a store.Action, diff store.Diff) Stream {
		return Actions(fn(s, a, diff)...)
	}
}

// WithRetry wraps an effect so that a failing stream is restarted with
// backoff, up to maxRetries additional attempts. The engine itself never
// retries a saga unit; resilience lives inside the effect sequence, and
// this is the building block for it.
//
// Restarting replays the effect from the beginning — actions emitted
// before the failure are emitted again. Effects wrapped this way should
// be idempotent or tolerate re-dispatch.
func WithRetry(effect Effect, strategy backoff.Strategy, maxRetries int) Effect {
	if strategy == nil {
		strategy = backoff.DefaultStrategy()
	}
	return func(ctx context.Context, s *store.Store, a store.Action, diff store.Diff) Stream {
		return Generate(func(ctx context.Context, yield func(store.Action) error) error {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				if attempt > 0 {
					timer := time.NewTimer(strategy.Delay(attempt))
					select {
					case <-timer.C:
					case <-ctx.Done():
						timer.Stop()
						return ctx.Err()
					}
				}

				// Each attempt gets a cancellable context so an abandoned
				// stream's generator goroutine is released when the attempt
				// ends, not when the whole unit does.
				attemptCtx, cancel := context.WithCancel(ctx)
				stream := effect(attemptCtx, s, a, diff)
				for {
					act, err := stream.Next(attemptCtx)
					if errors.Is(err, flopsy.ErrStreamDone) {
						cancel()
						return nil
					}
					if err != nil {
						lastErr = err
						break
					}
					if yerr := yield(act); yerr != nil {
						cancel()
						return yerr
					}
				}
				cancel()
			}
			return lastErr
		})
	}
}
