// Package saga provides the saga registry and the lazy action streams
// sagas produce: asynchronous effect chains triggered by state changes
// that may dispatch further actions.
package saga

import (
	"context"
	"sync"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/store"
)

// Stream is a lazy sequence of follow-up actions produced by one saga
// invocation. The scheduler pulls items until exhaustion or error, feeding
// each into dispatch. Streams may be empty, finite, or unbounded; each
// effect invocation produces a fresh stream — sagas are restarted, never
// resumed.
type Stream interface {
	// Next returns the next action. It returns flopsy.ErrStreamDone when
	// the sequence is exhausted, or any other error to terminate the saga
	// unit.
	Next(ctx context.Context) (store.Action, error)
}

// Actions returns a finite stream yielding the given actions in order.
func Actions(actions ...store.Action) Stream {
	return &sliceStream{actions: actions}
}

// None returns an empty stream. Useful for sagas that only observe.
func None() Stream {
	return &sliceStream{}
}

type sliceStream struct {
	actions []store.Action
	next    int
}

func (s *sliceStream) Next(_ context.Context) (store.Action, error) {
	if s.next >= len(s.actions) {
		return store.Action{}, flopsy.ErrStreamDone
	}
	a := s.actions[s.next]
	s.next++
	return a, nil
}

// Generate returns a stream backed by a generator function running in its
// own goroutine, started lazily on the first Next call. The generator
// emits actions through yield, which blocks until the consumer pulls or
// the context is done; returning nil ends the stream cleanly, returning an
// error terminates the saga unit with that error.
//
// The context passed to the first Next call governs the generator's
// lifetime. Generators that sleep or wait should select on ctx.Done so
// shutdown does not leak the goroutine.
func Generate(fn func(ctx context.Context, yield func(store.Action) error) error) Stream {
	return &genStream{
		fn:   fn,
		out:  make(chan store.Action),
		done: make(chan struct{}),
	}
}

type genStream struct {
	fn   func(ctx context.Context, yield func(store.Action) error) error
	once sync.Once
	out  chan store.Action
	done chan struct{}
	err  error // written before done closes
}

func (g *genStream) start(ctx context.Context) {
	g.once.Do(func() {
		go func() {
			defer close(g.done)
			yield := func(a store.Action) error {
				select {
				case g.out <- a:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			g.err = g.fn(ctx, yield)
			close(g.out)
		}()
	})
}

func (g *genStream) Next(ctx context.Context) (store.Action, error) {
	g.start(ctx)

	select {
	case a, ok := <-g.out:
		if !ok {
			<-g.done
			if g.err != nil {
				return store.Action{}, g.err
			}
			return store.Action{}, flopsy.ErrStreamDone
		}
		return a, nil
	case <-ctx.Done():
		return store.Action{}, ctx.Err()
	}
}
