package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type storeRegisteredEntry struct {
	name string
	hook StoreRegistered
}

type actionDispatchedEntry struct {
	name string
	hook ActionDispatched
}

type sagaStartedEntry struct {
	name string
	hook SagaStarted
}

type sagaCompletedEntry struct {
	name string
	hook SagaCompleted
}

type sagaFailedEntry struct {
	name string
	hook SagaFailed
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	storeRegistered  []storeRegisteredEntry
	actionDispatched []actionDispatchedEntry
	sagaStarted      []sagaStartedEntry
	sagaCompleted    []sagaCompletedEntry
	sagaFailed       []sagaFailedEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(StoreRegistered); ok {
		r.storeRegistered = append(r.storeRegistered, storeRegisteredEntry{name, h})
	}
	if h, ok := e.(ActionDispatched); ok {
		r.actionDispatched = append(r.actionDispatched, actionDispatchedEntry{name, h})
	}
	if h, ok := e.(SagaStarted); ok {
		r.sagaStarted = append(r.sagaStarted, sagaStartedEntry{name, h})
	}
	if h, ok := e.(SagaCompleted); ok {
		r.sagaCompleted = append(r.sagaCompleted, sagaCompletedEntry{name, h})
	}
	if h, ok := e.(SagaFailed); ok {
		r.sagaFailed = append(r.sagaFailed, sagaFailedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitStoreRegistered notifies all extensions that implement StoreRegistered.
func (r *Registry) EmitStoreRegistered(ctx context.Context, s *store.Store) {
	for _, e := range r.storeRegistered {
		if err := e.hook.OnStoreRegistered(ctx, s); err != nil {
			r.logHookError("OnStoreRegistered", e.name, err)
		}
	}
}

// EmitActionDispatched notifies all extensions that implement ActionDispatched.
func (r *Registry) EmitActionDispatched(ctx context.Context, s *store.Store, a store.Action, diff store.Diff) {
	for _, e := range r.actionDispatched {
		if err := e.hook.OnActionDispatched(ctx, s, a, diff); err != nil {
			r.logHookError("OnActionDispatched", e.name, err)
		}
	}
}

// EmitSagaStarted notifies all extensions that implement SagaStarted.
func (r *Registry) EmitSagaStarted(ctx context.Context, s *store.Store, sagaID id.SagaID) {
	for _, e := range r.sagaStarted {
		if err := e.hook.OnSagaStarted(ctx, s, sagaID); err != nil {
			r.logHookError("OnSagaStarted", e.name, err)
		}
	}
}

// EmitSagaCompleted notifies all extensions that implement SagaCompleted.
func (r *Registry) EmitSagaCompleted(ctx context.Context, s *store.Store, sagaID id.SagaID, elapsed time.Duration, emitted int) {
	for _, e := range r.sagaCompleted {
		if err := e.hook.OnSagaCompleted(ctx, s, sagaID, elapsed, emitted); err != nil {
			r.logHookError("OnSagaCompleted", e.name, err)
		}
	}
}

// EmitSagaFailed notifies all extensions that implement SagaFailed.
func (r *Registry) EmitSagaFailed(ctx context.Context, s *store.Store, sagaID id.SagaID, sagaErr error) {
	for _, e := range r.sagaFailed {
		if err := e.hook.OnSagaFailed(ctx, s, sagaID, sagaErr); err != nil {
			r.logHookError("OnSagaFailed", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

func (r *Registry) logHookError(hook, name string, err error) {
	r.logger.Error("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", name),
		slog.String("error", err.Error()),
	)
}
