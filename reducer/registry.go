// Package reducer provides the per-store-type reducer registry: bindings
// that route actions of a given type to attribute transforms.
//
// Bindings are keyed by store type, not instance — all instances of a
// store type share them. Installing resolves the transform by convention
// from the type's Definition (a custom reducer or a generated setter) and
// creates one binding per attribute name, all sharing one binding id.
// No duplicate detection is performed: installing the same binding twice
// yields two executions per dispatch.
package reducer

import (
	"fmt"
	"sync"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/id"
	"github.com/bgribble/flopsy/store"
)

// Binding routes one action type to one attribute transform. Bindings
// sharing an ID were installed together and are uninstalled together.
type Binding struct {
	ID         id.ReducerID
	ActionType string
	Attr       string
	Transform  store.Transform
}

// Registry holds reducer bindings keyed by store type and action type,
// in registration order. It is safe for concurrent use, though all
// mutation normally happens on the scheduler loop.
type Registry struct {
	mu sync.RWMutex
	// byType: storeType → actionType → bindings in registration order.
	byType map[string]map[string][]Binding
}

// NewRegistry creates an empty reducer registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string]map[string][]Binding),
	}
}

// Install registers, for each attribute name, a binding routing actions of
// actionType on the given store type to the type's transform for that
// action. The transform resolves by convention from the Definition: a
// custom reducer declared with WithReducer, or a generated setter.
// All created bindings share the returned id.
func (r *Registry) Install(def *store.Definition, actionType string, attrs ...string) (id.ReducerID, error) {
	fn, ok := def.Transform(actionType)
	if !ok {
		return id.Nil, fmt.Errorf("install %s on %s: %w", actionType, def.StoreType(), flopsy.ErrUnknownActionType)
	}
	for _, attr := range attrs {
		if !def.HasAttr(attr) {
			return id.Nil, fmt.Errorf("install %s on %s: attr %q: %w", actionType, def.StoreType(), attr, flopsy.ErrUnknownAttr)
		}
	}

	bindingID := id.NewReducerID()

	r.mu.Lock()
	defer r.mu.Unlock()

	actions, ok := r.byType[def.StoreType()]
	if !ok {
		actions = make(map[string][]Binding)
		r.byType[def.StoreType()] = actions
	}
	for _, attr := range attrs {
		actions[actionType] = append(actions[actionType], Binding{
			ID:         bindingID,
			ActionType: actionType,
			Attr:       attr,
			Transform:  fn,
		})
	}

	return bindingID, nil
}

// Uninstall removes every binding sharing the given id. Bindings installed
// separately for the same action type remain active.
func (r *Registry) Uninstall(bindingID id.ReducerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for _, actions := range r.byType {
		for actionType, bindings := range actions {
			kept := bindings[:0]
			for _, b := range bindings {
				if b.ID.String() == bindingID.String() {
					removed = true
					continue
				}
				kept = append(kept, b)
			}
			if len(kept) == 0 {
				delete(actions, actionType)
			} else {
				actions[actionType] = kept
			}
		}
	}

	if !removed {
		return fmt.Errorf("uninstall %s: %w", bindingID, flopsy.ErrBindingNotFound)
	}
	return nil
}

// Lookup returns the bindings for (storeType, actionType) in registration
// order. The returned slice is a copy.
func (r *Registry) Lookup(storeType, actionType string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions, ok := r.byType[storeType]
	if !ok {
		return nil
	}
	bindings := actions[actionType]
	if len(bindings) == 0 {
		return nil
	}

	out := make([]Binding, len(bindings))
	copy(out, bindings)
	return out
}
