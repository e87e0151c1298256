package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/store"
)

// Throttle returns middleware that rejects dispatches exceeding a
// token-bucket rate limit. Rejected dispatches fail with ErrThrottled
// before the reducer pass runs, leaving state untouched.
//
// The limit applies across all stores sharing the chain. limit is the
// sustained dispatches per second; burst is the bucket depth (values
// below 1 are clamped to 1 so a positive limit can ever fire).
func Throttle(limit rate.Limit, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) error {
		if !limiter.Allow() {
			return fmt.Errorf("%w: %s on %s/%s", flopsy.ErrThrottled, a.Type, s.StoreType(), s.ID())
		}
		return next(ctx)
	}
}
