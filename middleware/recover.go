package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bgribble/flopsy/store"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace,
// so one misbehaving transform cannot take down the scheduler loop.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("reducer pass panicked",
					slog.String("store_type", s.StoreType()),
					slog.String("store_id", s.ID()),
					slog.String("action_type", a.Type),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic dispatching %s to %s/%s: %v", a.Type, s.StoreType(), s.ID(), r)
			}
		}()
		return next(ctx)
	}
}
