package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/bgribble/flopsy/store"
)

// Logging returns middleware that logs every dispatch with its outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("dispatch failed",
				slog.String("store_type", s.StoreType()),
				slog.String("store_id", s.ID()),
				slog.String("action_type", a.Type),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("dispatch completed",
				slog.String("store_type", s.StoreType()),
				slog.String("store_id", s.ID()),
				slog.String("action_type", a.Type),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
