// Package redissync mirrors synced store types across processes through
// Redis. Local changes to a synced store are written to a Redis hash and
// announced on a pub/sub channel; remote announcements come back in as
// SYNC_* dispatches, so every process converges on the same state without
// any process owning it.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	sync := redissync.New(client, rt)
//	rt2, _ := engine.New(engine.WithExtension(sync))
//	go sync.Watch(ctx)
package redissync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/ext"
	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Syncer)(nil)
	_ ext.ActionDispatched = (*Syncer)(nil)
	_ ext.Shutdown         = (*Syncer)(nil)
)

// Runtime is the slice of the engine the syncer needs: locating stores
// and dispatching sync actions to them.
type Runtime interface {
	Find(storeType, storeID string) (*store.Store, error)
	Dispatch(ctx context.Context, s *store.Store, a store.Action) error
}

// DefaultChannel is the pub/sub channel change announcements go out on.
const DefaultChannel = "flopsy:sync"

// DefaultKeyPrefix namespaces the state hashes.
const DefaultKeyPrefix = "flopsy:store:"

// defaultQueueSize bounds the async write queue between the dispatch
// loop and the Redis writer.
const defaultQueueSize = 256

// notice is the pub/sub announcement for a batch of changed attributes.
type notice struct {
	Origin    string   `msgpack:"origin"`
	StoreType string   `msgpack:"store_type"`
	StoreID   string   `msgpack:"store_id"`
	Attrs     []string `msgpack:"attrs"`
}

// update is a pending local change waiting to be written to Redis.
type update struct {
	storeType string
	storeID   string
	values    map[string]any
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithChannel overrides the pub/sub channel name.
func WithChannel(name string) Option {
	return func(s *Syncer) { s.channel = name }
}

// WithKeyPrefix overrides the state hash key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Syncer) { s.keyPrefix = prefix }
}

// Syncer replicates synced stores through Redis. It implements the
// ext.ActionDispatched hook to observe local diffs; Watch consumes
// remote announcements. Each Syncer has a unique origin id so it can
// ignore its own announcements.
type Syncer struct {
	client redis.UniversalClient
	rt     Runtime
	logger *slog.Logger

	origin    id.SyncerID
	channel   string
	keyPrefix string

	// pending decouples the dispatch loop from Redis round trips. The
	// hook enqueues; the Watch loop writes.
	pending chan update
}

// New creates a Syncer. The caller owns the Redis client lifecycle.
func New(client redis.UniversalClient, rt Runtime, opts ...Option) *Syncer {
	s := &Syncer{
		client:    client,
		rt:        rt,
		logger:    slog.Default(),
		origin:    id.NewSyncerID(),
		channel:   DefaultChannel,
		keyPrefix: DefaultKeyPrefix,
		pending:   make(chan update, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ext.Extension.
func (s *Syncer) Name() string { return "redis-syncer" }

// Origin returns this syncer's identity as used in announcements.
func (s *Syncer) Origin() id.SyncerID { return s.origin }

// stateKey returns the hash key holding a store instance's state.
func (s *Syncer) stateKey(storeType, storeID string) string {
	return s.keyPrefix + storeType + "/" + storeID
}

// OnActionDispatched queues local changes to synced stores for
// replication. SYNC_* actions are skipped: they are the remote side of
// replication, pushing them back out would echo forever. The hook runs
// on the dispatch loop, so it only enqueues; a full queue drops the
// update with a warning rather than stalling dispatch.
func (s *Syncer) OnActionDispatched(_ context.Context, st *store.Store, a store.Action, diff store.Diff) error {
	if !st.Def().Synced() || len(diff) == 0 || store.IsSync(a.Type) {
		return nil
	}

	values := make(map[string]any, len(diff))
	for attr, ch := range diff {
		values[attr] = ch.New
	}

	select {
	case s.pending <- update{storeType: st.StoreType(), storeID: st.ID(), values: values}:
	default:
		s.logger.Warn("sync queue full, dropping update",
			"store_type", st.StoreType(),
			"store_id", st.ID())
	}
	return nil
}

// OnShutdown is a no-op; Watch exits with its context.
func (s *Syncer) OnShutdown(_ context.Context) error { return nil }

// push writes one update to the state hash and announces it.
func (s *Syncer) push(ctx context.Context, u update) error {
	fields := make(map[string]any, len(u.values))
	attrs := make([]string, 0, len(u.values))
	for attr, v := range u.values {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return fmt.Errorf("redissync: encode %s.%s: %w", u.storeType, attr, err)
		}
		fields[attr] = data
		attrs = append(attrs, attr)
	}

	payload, err := msgpack.Marshal(notice{
		Origin:    s.origin.String(),
		StoreType: u.storeType,
		StoreID:   u.storeID,
		Attrs:     attrs,
	})
	if err != nil {
		return fmt.Errorf("redissync: encode notice: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.stateKey(u.storeType, u.storeID), fields)
	pipe.Publish(ctx, s.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redissync: push %s/%s: %w", u.storeType, u.storeID, err)
	}
	return nil
}

// Load hydrates a store from the state hash, dispatching a SYNC_* action
// per stored attribute so reducers, diffs, and sagas all observe the
// values arriving. Missing hashes are not an error: the store keeps its
// initial state.
func (s *Syncer) Load(ctx context.Context, st *store.Store) error {
	vals, err := s.client.HGetAll(ctx, s.stateKey(st.StoreType(), st.ID())).Result()
	if err != nil {
		return fmt.Errorf("redissync: load %s/%s: %w", st.StoreType(), st.ID(), err)
	}

	for attr, raw := range vals {
		if !st.Def().HasAttr(attr) {
			continue
		}
		var v any
		if err := msgpack.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Errorf("redissync: decode %s.%s: %w", st.StoreType(), attr, err)
		}
		if err := s.rt.Dispatch(ctx, st, st.Sync(attr, v)); err != nil {
			return err
		}
	}
	return nil
}

// Watch runs the replication loop: it writes queued local updates to
// Redis and applies remote announcements as SYNC_* dispatches. It blocks
// until ctx is canceled.
func (s *Syncer) Watch(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Force the subscription before consuming so no announcement is
	// missed between queue writes and channel reads.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redissync: subscribe %s: %w", s.channel, err)
	}
	msgs := pubsub.Channel()

	s.logger.Info("redis syncer watching",
		"channel", s.channel,
		"origin", s.origin.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u := <-s.pending:
			if err := s.push(ctx, u); err != nil {
				s.logger.Error("sync push failed", "error", err)
			}

		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := s.apply(ctx, []byte(msg.Payload)); err != nil {
				s.logger.Error("sync apply failed", "error", err)
			}
		}
	}
}

// apply handles one remote announcement: fetch the announced attributes
// from the state hash and dispatch them as SYNC_* actions.
func (s *Syncer) apply(ctx context.Context, payload []byte) error {
	var n notice
	if err := msgpack.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("redissync: decode notice: %w", err)
	}
	if n.Origin == s.origin.String() {
		return nil
	}

	st, err := s.rt.Find(n.StoreType, n.StoreID)
	if err != nil {
		// Not every process holds every instance.
		if errors.Is(err, flopsy.ErrStoreNotFound) {
			return nil
		}
		return err
	}

	for _, attr := range n.Attrs {
		if !st.Def().HasAttr(attr) {
			continue
		}
		raw, err := s.client.HGet(ctx, s.stateKey(n.StoreType, n.StoreID), attr).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redissync: fetch %s.%s: %w", n.StoreType, attr, err)
		}
		var v any
		if err := msgpack.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Errorf("redissync: decode %s.%s: %w", n.StoreType, attr, err)
		}
		if err := s.rt.Dispatch(ctx, st, st.Sync(attr, v)); err != nil {
			return err
		}
	}
	return nil
}
