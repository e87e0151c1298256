package redissync

import (
	"context"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/store"
)

// fakeRuntime records dispatches without an engine.
type fakeRuntime struct {
	stores     map[string]*store.Store
	dispatched []store.Action
}

func (f *fakeRuntime) Find(storeType, storeID string) (*store.Store, error) {
	s, ok := f.stores[storeType+"/"+storeID]
	if !ok {
		return nil, flopsy.ErrStoreNotFound
	}
	return s, nil
}

func (f *fakeRuntime) Dispatch(_ context.Context, _ *store.Store, a store.Action) error {
	f.dispatched = append(f.dispatched, a)
	return nil
}

func syncedStore() *store.Store {
	def := store.NewDefinition("session", store.WithAttrs("user", "theme"), store.Synced())
	return store.New(def, store.WithID("s-1"))
}

func TestHookQueuesSyncedChanges(t *testing.T) {
	t.Parallel()

	sync := New(nil, &fakeRuntime{})
	st := syncedStore()
	diff := store.Diff{"user": {Old: nil, New: "alice"}}

	if err := sync.OnActionDispatched(context.Background(), st, st.Set("user", "alice"), diff); err != nil {
		t.Fatalf("OnActionDispatched: %v", err)
	}

	select {
	case u := <-sync.pending:
		if u.storeType != "session" || u.storeID != "s-1" {
			t.Errorf("queued update for %s/%s", u.storeType, u.storeID)
		}
		if u.values["user"] != "alice" {
			t.Errorf("queued value = %v, want alice", u.values["user"])
		}
	default:
		t.Fatal("no update queued")
	}
}

func TestHookSkipsUnsyncedAndEcho(t *testing.T) {
	t.Parallel()

	sync := New(nil, &fakeRuntime{})

	// Unsynced store type: never replicated.
	plain := store.New(store.NewDefinition("scratch", store.WithAttrs("x")))
	if err := sync.OnActionDispatched(context.Background(), plain, plain.Set("x", 1),
		store.Diff{"x": {Old: nil, New: 1}}); err != nil {
		t.Fatalf("OnActionDispatched: %v", err)
	}

	st := syncedStore()

	// SYNC_* action: the remote side of replication, never echoed back.
	if err := sync.OnActionDispatched(context.Background(), st, st.Sync("user", "bob"),
		store.Diff{"user": {Old: "alice", New: "bob"}}); err != nil {
		t.Fatalf("OnActionDispatched: %v", err)
	}

	// Empty diff: nothing to replicate.
	if err := sync.OnActionDispatched(context.Background(), st, st.Set("user", "bob"), store.Diff{}); err != nil {
		t.Fatalf("OnActionDispatched: %v", err)
	}

	select {
	case u := <-sync.pending:
		t.Fatalf("unexpected queued update: %+v", u)
	default:
	}
}

func TestApplySkipsOwnOrigin(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{stores: map[string]*store.Store{"session/s-1": syncedStore()}}
	sync := New(nil, rt)

	payload, err := msgpack.Marshal(notice{
		Origin:    sync.Origin().String(),
		StoreType: "session",
		StoreID:   "s-1",
		Attrs:     []string{"user"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := sync.apply(context.Background(), payload); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(rt.dispatched) != 0 {
		t.Fatalf("dispatched %d actions for own announcement", len(rt.dispatched))
	}
}

func TestApplyIgnoresUnknownStore(t *testing.T) {
	t.Parallel()

	rt := &fakeRuntime{stores: map[string]*store.Store{}}
	sync := New(nil, rt)

	other := New(nil, rt)
	payload, err := msgpack.Marshal(notice{
		Origin:    other.Origin().String(),
		StoreType: "session",
		StoreID:   "elsewhere",
		Attrs:     []string{"user"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// This process does not hold the instance; the announcement is not
	// an error.
	if err := sync.apply(context.Background(), payload); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestNoticeRoundTrip(t *testing.T) {
	t.Parallel()

	in := notice{
		Origin:    "sync_abc",
		StoreType: "session",
		StoreID:   "s-1",
		Attrs:     []string{"user", "theme"},
	}
	data, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out notice
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Origin != in.Origin || out.StoreType != in.StoreType || out.StoreID != in.StoreID {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
	if len(out.Attrs) != 2 {
		t.Fatalf("attrs = %v", out.Attrs)
	}
}

func TestStateKeyAndOptions(t *testing.T) {
	t.Parallel()

	sync := New(nil, &fakeRuntime{}, WithKeyPrefix("app:"), WithChannel("app:changes"))
	if got := sync.stateKey("session", "s-1"); got != "app:session/s-1" {
		t.Errorf("stateKey = %q", got)
	}
	if sync.channel != "app:changes" {
		t.Errorf("channel = %q", sync.channel)
	}
	if sync.Origin().IsNil() {
		t.Error("origin id not generated")
	}
}
