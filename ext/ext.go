// Package ext defines the extension system for flopsy. Extensions are
// notified of lifecycle events (store registered, action dispatched, saga
// started/completed/failed, shutdown) and can react to them — streaming,
// metrics, external mirroring, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// StoreRegistered is called after a store instance registers in the
// directory, before its initialization dispatch.
type StoreRegistered interface {
	OnStoreRegistered(ctx context.Context, s *store.Store) error
}

// ActionDispatched is called after a dispatch completes its reducer pass:
// the diff is final and all transforms have run, but sagas for this
// dispatch may not have started yet.
type ActionDispatched interface {
	OnActionDispatched(ctx context.Context, s *store.Store, a store.Action, diff store.Diff) error
}

// SagaStarted is called when a saga unit is scheduled for a dispatch.
type SagaStarted interface {
	OnSagaStarted(ctx context.Context, s *store.Store, sagaID id.SagaID) error
}

// SagaCompleted is called when a saga unit drains its stream cleanly.
// emitted is the number of follow-up actions the unit dispatched.
type SagaCompleted interface {
	OnSagaCompleted(ctx context.Context, s *store.Store, sagaID id.SagaID, elapsed time.Duration, emitted int) error
}

// SagaFailed is called when a saga unit terminates with an error.
type SagaFailed interface {
	OnSagaFailed(ctx context.Context, s *store.Store, sagaID id.SagaID, err error) error
}

// Shutdown is called during graceful runtime shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
