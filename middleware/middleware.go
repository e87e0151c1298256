// Package middleware provides composable middleware for action dispatch.
// Middleware wraps the reducer pass of a dispatch synchronously on the
// scheduler loop and can modify execution (recover from panics, log,
// record metrics, add tracing, throttle, etc.).
package middleware

import (
	"context"

	"github.com/bgribble/flopsy/store"
)

// Handler is the terminal function that runs the reducer pass.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the target store, the action being
// dispatched, and the next handler to call. Middleware MUST call next to
// continue the chain (unless short-circuiting on error).
type Middleware func(ctx context.Context, s *store.Store, a store.Action, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, throttle) executes as:
//
//	logging → recover → throttle → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, s *store.Store, a store.Action, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, s, a, prev)
			}
		}
		return h(ctx)
	}
}
