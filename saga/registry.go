package saga

import (
	"fmt"
	"sync"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Binding pairs an effect with an optional attribute filter. An empty
// filter means "run on any state change". Bindings are keyed by store
// type: all instances share them.
type Binding struct {
	ID     id.SagaID
	Effect Effect
	Filter map[string]struct{}
}

// Matches reports whether the binding qualifies for a dispatch that
// changed the given attributes.
func (b Binding) Matches(changed []string) bool {
	if len(b.Filter) == 0 {
		return true
	}
	for _, attr := range changed {
		if _, ok := b.Filter[attr]; ok {
			return true
		}
	}
	return false
}

// Registry holds saga bindings per store type, in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]Binding
}

// NewRegistry creates an empty saga registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string][]Binding),
	}
}

// Install registers an effect for the store type. filter names the
// attributes whose changes trigger the saga; with no filter the saga runs
// on every state change. Filter names must be recognized attributes of the
// definition.
func (r *Registry) Install(def *store.Definition, effect Effect, filter ...string) (id.SagaID, error) {
	set := make(map[string]struct{}, len(filter))
	for _, attr := range filter {
		if !def.HasAttr(attr) {
			return id.Nil, fmt.Errorf("install saga on %s: attr %q: %w", def.StoreType(), attr, flopsy.ErrUnknownAttr)
		}
		set[attr] = struct{}{}
	}

	bindingID := id.NewSagaID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[def.StoreType()] = append(r.byType[def.StoreType()], Binding{
		ID:     bindingID,
		Effect: effect,
		Filter: set,
	})

	return bindingID, nil
}

// Uninstall removes the binding with the given id.
func (r *Registry) Uninstall(bindingID id.SagaID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for storeType, bindings := range r.byType {
		for i, b := range bindings {
			if b.ID.String() == bindingID.String() {
				r.byType[storeType] = append(bindings[:i:i], bindings[i+1:]...)
				if len(r.byType[storeType]) == 0 {
					delete(r.byType, storeType)
				}
				return nil
			}
		}
	}

	return fmt.Errorf("uninstall %s: %w", bindingID, flopsy.ErrBindingNotFound)
}

// Match returns the bindings for the store type qualifying for a dispatch
// that changed the given attributes, in registration order. The returned
// slice is a copy.
func (r *Registry) Match(storeType string, changed []string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	for _, b := range r.byType[storeType] {
		if b.Matches(changed) {
			out = append(out, b)
		}
	}
	return out
}
