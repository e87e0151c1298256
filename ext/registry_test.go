package ext

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

type recordingExt struct {
	name       string
	registered int
	dispatched int
	failErr    error
}

func (r *recordingExt) Name() string { return r.name }

func (r *recordingExt) OnStoreRegistered(context.Context, *store.Store) error {
	r.registered++
	return r.failErr
}

func (r *recordingExt) OnActionDispatched(context.Context, *store.Store, store.Action, store.Diff) error {
	r.dispatched++
	return r.failErr
}

type shutdownOnlyExt struct{ shutdowns int }

func (s *shutdownOnlyExt) Name() string                     { return "shutdown-only" }
func (s *shutdownOnlyExt) OnShutdown(context.Context) error { s.shutdowns++; return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestEmitReachesOnlyImplementors(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	rec := &recordingExt{name: "recorder"}
	sd := &shutdownOnlyExt{}
	r.Register(rec)
	r.Register(sd)

	def := store.NewDefinition("Counter", store.WithAttrs("count"))
	s := store.New(def)
	ctx := context.Background()

	r.EmitStoreRegistered(ctx, s)
	r.EmitActionDispatched(ctx, s, s.Set("count", 1), store.Diff{})
	r.EmitSagaStarted(ctx, s, id.NewSagaID())
	r.EmitShutdown(ctx)

	if rec.registered != 1 || rec.dispatched != 1 {
		t.Errorf("recorder saw registered=%d dispatched=%d", rec.registered, rec.dispatched)
	}
	if sd.shutdowns != 1 {
		t.Errorf("shutdown-only saw %d shutdowns", sd.shutdowns)
	}
	if got := len(r.Extensions()); got != 2 {
		t.Errorf("Extensions() = %d, want 2", got)
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	failing := &recordingExt{name: "failing", failErr: errors.New("hook broke")}
	healthy := &recordingExt{name: "healthy"}
	r.Register(failing)
	r.Register(healthy)

	def := store.NewDefinition("Counter", store.WithAttrs("count"))
	s := store.New(def)

	r.EmitStoreRegistered(context.Background(), s)

	if healthy.registered != 1 {
		t.Error("error from one hook prevented delivery to the next")
	}
}
