package store

import (
	"context"
	"sync"

	"github.com/bgribble/flopsy"
)

// Dispatcher submits an action to the dispatch engine on behalf of a
// store. The engine runtime implements it; Store holds it so that
// application code can dispatch straight off an instance.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *Store, a Action) error
}

// Store is a typed, identified container of state attributes. Instances
// are created through the runtime, which registers them in the directory
// and issues the synthetic initialization dispatch.
//
// Attribute values are written only by the dispatch engine on the
// scheduler loop. Reads are safe from any goroutine.
type Store struct {
	def        *Definition
	id         string
	dispatcher Dispatcher

	mu     sync.RWMutex
	values map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithID sets an explicit per-type-unique identifier. When omitted, ids
// are assigned sequentially per type ("1", "2", …).
func WithID(id string) Option {
	return func(s *Store) { s.id = id }
}

// WithDispatcher sets the dispatch engine the store submits actions to.
// The runtime sets this when creating stores.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Store) { s.dispatcher = d }
}

// WithInitial sets an attribute's initial value, before the initialization
// dispatch reports it. Unknown attribute names are ignored at construction
// and surface as absent on reads.
func WithInitial(attr string, v any) Option {
	return func(s *Store) {
		if s.def.HasAttr(attr) {
			s.values[attr] = v
		}
	}
}

// New creates a store instance of the given type. Every recognized
// attribute starts at nil unless set via WithInitial.
func New(def *Definition, opts ...Option) *Store {
	s := &Store{
		def:    def,
		values: make(map[string]any),
	}
	for _, attr := range def.Attrs() {
		s.values[attr] = nil
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = def.nextAutoID()
	}
	return s
}

// Def returns the store's type definition.
func (s *Store) Def() *Definition { return s.def }

// StoreType returns the type name used for aggregation.
func (s *Store) StoreType() string { return s.def.storeType }

// ID returns the per-type-unique instance identifier.
func (s *Store) ID() string { return s.id }

// State returns a copy of the attribute-name → value mapping.
func (s *Store) State() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for attr, v := range s.values {
		out[attr] = v
	}
	return out
}

// Get returns the current value of an attribute. The second return is
// false for unrecognized attribute names.
func (s *Store) Get(attr string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[attr]
	return v, ok
}

// Assign writes an attribute value. Called by the dispatch engine on the
// scheduler loop; application code mutates state through dispatch, never
// directly.
func (s *Store) Assign(attr string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[attr] = v
}

// Action builds an action of the given type targeting this store.
func (s *Store) Action(actionType string, payload map[string]any) Action {
	return NewAction(s, actionType, payload)
}

// Set builds the generated setter action for an attribute.
func (s *Store) Set(attr string, v any) Action {
	return s.Action(SetAction(attr), map[string]any{"value": v})
}

// Sync builds the generated sync action for an attribute on a synced type.
func (s *Store) Sync(attr string, v any) Action {
	return s.Action(SyncAction(attr), map[string]any{"value": v})
}

// Init builds the synthetic initialization action. The runtime dispatches
// it once per instance; dispatching it again re-reports full state.
func (s *Store) Init() Action {
	return s.Action(InitAction, nil)
}

// Dispatch submits an action through the store's dispatcher.
func (s *Store) Dispatch(ctx context.Context, a Action) error {
	if s.dispatcher == nil {
		return flopsy.ErrNotStarted
	}
	return s.dispatcher.Dispatch(ctx, s, a)
}
