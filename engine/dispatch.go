package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/reducer"
	"github.com/bgribble/flopsy/saga"
	"github.com/bgribble/flopsy/store"
)

// Dispatch applies the action to the store's state and fans out the
// resulting diff to matching sagas. The reducer pass always runs on the
// scheduler loop: callers already on the loop (transforms, middleware)
// execute it inline, every other goroutine blocks until the loop has run
// it. Reducer and middleware errors propagate to the caller with state
// unchanged for the failing binding; saga errors never do.
func (rt *Runtime) Dispatch(ctx context.Context, s *store.Store, a store.Action) error {
	if s == nil {
		s = a.Target
	}
	if s == nil {
		return flopsy.ErrNilTarget
	}

	// The scheduler accepts Call during graceful shutdown so in-flight
	// saga units can finish their follow-up dispatches; it refuses only
	// before Start and after the loop is down.
	err := rt.sched.Call(ctx, func(ctx context.Context) error {
		return rt.dispatchOnLoop(ctx, s, a)
	})
	if errors.Is(err, flopsy.ErrSchedulerStopped) {
		return flopsy.ErrNotStarted
	}
	return err
}

// dispatchOnLoop runs the full dispatch sequence: middleware-wrapped
// reducer pass, diff publication to extensions, saga fan-out.
func (rt *Runtime) dispatchOnLoop(ctx context.Context, s *store.Store, a store.Action) error {
	diff := make(store.Diff)

	reduce := func(ctx context.Context) error {
		return rt.reduce(ctx, s, a, diff)
	}

	var err error
	if rt.chain != nil {
		err = rt.chain(ctx, s, a, reduce)
	} else {
		err = reduce(ctx)
	}
	if err != nil {
		return err
	}

	// The synthetic init action reports every attribute as changed, from
	// the no-value sentinel to whatever the reducer pass (or the store's
	// initial values) left in place.
	if a.Type == store.InitAction {
		state := s.State()
		for _, attr := range s.Def().Attrs() {
			diff[attr] = store.Change{Old: store.NoValue, New: state[attr]}
		}
	}

	rt.exts.EmitActionDispatched(ctx, s, a, diff)

	if len(diff) == 0 {
		return nil
	}

	changed := diff.Changed()
	for _, b := range rt.sagas.Match(s.StoreType(), changed) {
		rt.startSaga(s, a, diff.Clone(), b)
	}
	return nil
}

// reduce runs every installed binding for (storeType, actionType) in
// registration order, falling back to the definition's generated setter
// when nothing is installed. A binding whose transform returns an error
// aborts the pass; earlier bindings' writes stand.
func (rt *Runtime) reduce(ctx context.Context, s *store.Store, a store.Action, diff store.Diff) error {
	bindings := rt.reducers.Lookup(s.StoreType(), a.Type)
	if len(bindings) == 0 {
		fn, attr, ok := s.Def().Fallback(a.Type)
		if !ok {
			rt.logger.Debug("no reducer for action",
				"store_type", s.StoreType(),
				"action_type", a.Type)
			return nil
		}
		bindings = []reducer.Binding{{ActionType: a.Type, Attr: attr, Transform: fn}}
	}

	for _, b := range bindings {
		old, ok := s.Get(b.Attr)
		if !ok {
			return fmt.Errorf("%w: %s.%s", flopsy.ErrUnknownAttr, s.StoreType(), b.Attr)
		}
		next, err := b.Transform(ctx, s, a, b.Attr, old)
		if err != nil {
			return fmt.Errorf("reduce %s on %s/%s attr %q: %w",
				a.Type, s.StoreType(), s.ID(), b.Attr, err)
		}
		s.Assign(b.Attr, next)
		if !reflect.DeepEqual(old, next) {
			// Later bindings for the same attr overwrite the entry; Old
			// tracks the per-binding previous value, not the pre-dispatch
			// one, so a set-then-restore sequence still reports a change.
			diff[b.Attr] = store.Change{Old: old, New: next}
		}
	}
	return nil
}

// startSaga launches one saga unit: a tracked scheduler task that drains
// the effect's action stream, dispatching each yielded action back
// through the loop. The unit's context derives from the scheduler's base
// context, never the loop-marked one, so follow-up dispatches serialize
// normally; it is cancelled when the unit exits, which unwinds any
// generator goroutine behind an abandoned stream.
func (rt *Runtime) startSaga(s *store.Store, trigger store.Action, diff store.Diff, b saga.Binding) {
	taskID := rt.sched.Go("saga:"+b.ID.String(), func(ctx context.Context) error {
		rt.exts.EmitSagaStarted(ctx, s, b.ID)
		start := time.Now()

		stream := b.Effect(ctx, s, trigger, diff)
		emitted := 0
		for {
			act, err := stream.Next(ctx)
			if errors.Is(err, flopsy.ErrStreamDone) {
				break
			}
			if err != nil {
				rt.exts.EmitSagaFailed(ctx, s, b.ID, err)
				return fmt.Errorf("saga %s on %s/%s: %w", b.ID, s.StoreType(), s.ID(), err)
			}

			target := act.Target
			if target == nil {
				target = s
			}
			if err := rt.Dispatch(ctx, target, act); err != nil {
				rt.exts.EmitSagaFailed(ctx, s, b.ID, err)
				return fmt.Errorf("saga %s dispatching %s: %w", b.ID, act.Type, err)
			}
			emitted++
		}

		rt.exts.EmitSagaCompleted(ctx, s, b.ID, time.Since(start), emitted)
		return nil
	})
	if taskID.IsNil() {
		rt.logger.Warn("saga unit dropped, runtime stopping",
			"saga_id", b.ID.String(),
			"store_type", s.StoreType())
	}
}
