package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bgribble/flopsy/ext"
	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Broker)(nil)
	_ ext.StoreRegistered  = (*Broker)(nil)
	_ ext.ActionDispatched = (*Broker)(nil)
	_ ext.SagaStarted      = (*Broker)(nil)
	_ ext.SagaCompleted    = (*Broker)(nil)
	_ ext.SagaFailed       = (*Broker)(nil)
	_ ext.Shutdown         = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time stream broker. It implements the ext.Extension
// hook interfaces to receive lifecycle events from the runtime and fans
// them out to subscribers via topic-based pub/sub. Register it with
// engine.WithExtension.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics. An empty
// subscriberID gets a generated one.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	if subscriberID == "" {
		subscriberID = id.NewSubscriberID().String()
	}
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close()
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
}

// publish broadcasts an event to all matching topics.
func (b *Broker) publish(evt *Event) {
	topics := resolveTopics(evt)
	delivered := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// ── Lifecycle hooks ─────────────────────────────

func (b *Broker) OnStoreRegistered(_ context.Context, s *store.Store) error {
	b.publish(&Event{
		Type:      EventStoreRegistered,
		Timestamp: time.Now().UTC(),
		Topic:     StoreTopic(s.StoreType(), s.ID()),
		Data: mustMarshal(StoreEventData{
			StoreType: s.StoreType(),
			StoreID:   s.ID(),
			Attrs:     s.Def().Attrs(),
		}),
	})
	return nil
}

func (b *Broker) OnActionDispatched(_ context.Context, s *store.Store, a store.Action, diff store.Diff) error {
	b.publish(&Event{
		Type:      EventActionDispatched,
		Timestamp: time.Now().UTC(),
		Topic:     StoreTopic(s.StoreType(), s.ID()),
		Data: mustMarshal(ActionEventData{
			StoreType:  s.StoreType(),
			StoreID:    s.ID(),
			ActionID:   a.ID.String(),
			ActionType: a.Type,
			Changed:    diff.Changed(),
		}),
	})
	return nil
}

func (b *Broker) OnSagaStarted(_ context.Context, s *store.Store, sagaID id.SagaID) error {
	b.publish(&Event{
		Type:      EventSagaStarted,
		Timestamp: time.Now().UTC(),
		Topic:     StoreTopic(s.StoreType(), s.ID()),
		Data: mustMarshal(SagaEventData{
			StoreType: s.StoreType(),
			StoreID:   s.ID(),
			SagaID:    sagaID.String(),
		}),
	})
	return nil
}

func (b *Broker) OnSagaCompleted(_ context.Context, s *store.Store, sagaID id.SagaID, elapsed time.Duration, emitted int) error {
	b.publish(&Event{
		Type:      EventSagaCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     StoreTopic(s.StoreType(), s.ID()),
		Data: mustMarshal(SagaEventData{
			StoreType: s.StoreType(),
			StoreID:   s.ID(),
			SagaID:    sagaID.String(),
			ElapsedMs: elapsed.Milliseconds(),
			Emitted:   emitted,
		}),
	})
	return nil
}

func (b *Broker) OnSagaFailed(_ context.Context, s *store.Store, sagaID id.SagaID, sagaErr error) error {
	b.publish(&Event{
		Type:      EventSagaFailed,
		Timestamp: time.Now().UTC(),
		Topic:     StoreTopic(s.StoreType(), s.ID()),
		Data: mustMarshal(SagaEventData{
			StoreType: s.StoreType(),
			StoreID:   s.ID(),
			SagaID:    sagaID.String(),
			Error:     sagaErr.Error(),
		}),
	})
	return nil
}

// OnShutdown closes every subscriber so range loops over C() terminate.
func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, val any) bool {
		b.topics.UnsubscribeAll(key.(string))
		val.(*Subscriber).Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Debug("stream broker shut down")
	return nil
}
