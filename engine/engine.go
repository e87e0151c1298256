// Package engine wires all flopsy subsystems together into one explicit
// dispatch runtime: the reducer and saga registries, the store directory,
// the task scheduler, the extension registry, and the dispatch middleware
// chain. Create one Runtime at process start, pass it (or stores created
// through it) wherever actions are dispatched, and stop it at process end.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/directory"
	"github.com/bgribble/flopsy/ext"
	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/middleware"
	"github.com/bgribble/flopsy/reducer"
	"github.com/bgribble/flopsy/saga"
	"github.com/bgribble/flopsy/sched"
	"github.com/bgribble/flopsy/store"
)

// Compile-time interface check: stores dispatch through the runtime.
var _ store.Dispatcher = (*Runtime)(nil)

// Runtime is the dispatch runtime. All registries hang off it; there is
// no package-level mutable state.
type Runtime struct {
	cfg    flopsy.Config
	logger *slog.Logger

	reducers *reducer.Registry
	sagas    *saga.Registry
	dir      *directory.Directory
	sched    *sched.Scheduler
	exts     *ext.Registry

	mws         []middleware.Middleware
	chain       middleware.Middleware
	pendingExts []ext.Extension

	started atomic.Bool
}

// Option configures a Runtime.
type Option func(*Runtime) error

// WithLogger sets the structured logger for the runtime and everything it
// owns.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) error {
		rt.logger = l
		return nil
	}
}

// WithConfig sets the runtime configuration.
func WithConfig(cfg flopsy.Config) Option {
	return func(rt *Runtime) error {
		rt.cfg = cfg
		return nil
	}
}

// WithExtension registers an extension with the runtime.
func WithExtension(e ext.Extension) Option {
	return func(rt *Runtime) error {
		rt.pendingExts = append(rt.pendingExts, e)
		return nil
	}
}

// WithMiddleware adds middleware to the dispatch chain. Middleware wrap
// the reducer pass of every dispatch and run on the scheduler loop.
func WithMiddleware(m middleware.Middleware) Option {
	return func(rt *Runtime) error {
		rt.mws = append(rt.mws, m)
		return nil
	}
}

// New creates a Runtime with the given options. Call Start before
// creating stores or dispatching.
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		cfg:      flopsy.DefaultConfig(),
		logger:   slog.Default(),
		reducers: reducer.NewRegistry(),
		sagas:    saga.NewRegistry(),
		dir:      directory.New(),
	}
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return nil, err
		}
	}

	// Logger-bearing members are built after options so a WithLogger
	// anywhere in the list takes effect everywhere.
	rt.exts = ext.NewRegistry(rt.logger)
	for _, e := range rt.pendingExts {
		rt.exts.Register(e)
	}
	rt.pendingExts = nil
	rt.sched = sched.New(rt.logger, sched.WithQueueSize(rt.cfg.LoopQueueSize))

	return rt, nil
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Config returns a copy of the runtime configuration.
func (rt *Runtime) Config() flopsy.Config { return rt.cfg }

// Directory returns the store directory.
func (rt *Runtime) Directory() *directory.Directory { return rt.dir }

// Extensions returns the extension registry.
func (rt *Runtime) Extensions() *ext.Registry { return rt.exts }

// Start launches the scheduler loop and builds the middleware chain.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.started.Swap(true) {
		return nil
	}
	if len(rt.mws) > 0 {
		rt.chain = middleware.Chain(rt.mws...)
	}
	if err := rt.sched.Start(ctx); err != nil {
		rt.started.Store(false)
		return err
	}

	rt.logger.Info("flopsy runtime started")
	return nil
}

// Stop refuses new dispatches, waits for in-flight saga units up to
// Config.ShutdownTimeout, and notifies Shutdown extensions.
func (rt *Runtime) Stop(ctx context.Context) error {
	if !rt.started.Swap(false) {
		return nil
	}

	stopCtx := ctx
	if rt.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, rt.cfg.ShutdownTimeout)
		defer cancel()
	}
	err := rt.sched.Stop(stopCtx)

	rt.exts.EmitShutdown(ctx)
	rt.logger.Info("flopsy runtime stopped")
	return err
}

// NewStore creates a store instance of the given type, registers it in
// the directory, and issues the synthetic initialization dispatch whose
// diff reports every attribute's initial value.
func (rt *Runtime) NewStore(ctx context.Context, def *store.Definition, opts ...store.Option) (*store.Store, error) {
	if !rt.started.Load() {
		return nil, flopsy.ErrNotStarted
	}

	s := store.New(def, append(opts, store.WithDispatcher(rt))...)
	if err := rt.dir.Register(s); err != nil {
		return nil, err
	}
	rt.exts.EmitStoreRegistered(ctx, s)

	if err := rt.Dispatch(ctx, s, s.Init()); err != nil {
		return nil, fmt.Errorf("init dispatch for %s/%s: %w", s.StoreType(), s.ID(), err)
	}

	return s, nil
}

// RemoveStore deregisters a store instance. Installed bindings for its
// type are unaffected; in-flight saga units referencing the instance run
// to completion.
func (rt *Runtime) RemoveStore(s *store.Store) {
	rt.dir.Deregister(s.StoreType(), s.ID())
}

// InstallReducer registers reducer bindings routing actionType to the
// type's transform for each named attribute. All bindings share the
// returned id.
func (rt *Runtime) InstallReducer(def *store.Definition, actionType string, attrs ...string) (id.ReducerID, error) {
	return rt.reducers.Install(def, actionType, attrs...)
}

// UninstallReducer removes every reducer binding sharing the id.
func (rt *Runtime) UninstallReducer(bindingID id.ReducerID) error {
	return rt.reducers.Uninstall(bindingID)
}

// InstallSaga registers an effect for the store type, optionally filtered
// to the named attributes.
func (rt *Runtime) InstallSaga(def *store.Definition, effect saga.Effect, filter ...string) (id.SagaID, error) {
	return rt.sagas.Install(def, effect, filter...)
}

// UninstallSaga removes the saga binding with the id.
func (rt *Runtime) UninstallSaga(bindingID id.SagaID) error {
	return rt.sagas.Uninstall(bindingID)
}

// Find returns the store registered under (storeType, id).
func (rt *Runtime) Find(storeType, storeID string) (*store.Store, error) {
	return rt.dir.Find(storeType, storeID)
}

// AllStoreTypes returns one representative definition per store type with
// live instances.
func (rt *Runtime) AllStoreTypes() []*store.Definition { return rt.dir.AllStoreTypes() }

// AllStores returns every live store instance.
func (rt *Runtime) AllStores() []*store.Store { return rt.dir.AllStores() }

// Snapshot returns the full state of every registered store.
func (rt *Runtime) Snapshot() map[string]map[string]map[string]any { return rt.dir.Snapshot() }

// TaskCount returns the number of live saga units.
func (rt *Runtime) TaskCount() int { return rt.sched.TaskCount() }
