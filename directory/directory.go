// Package directory provides the store registry: the process-wide map of
// live store instances keyed by (storeType, id), used for aggregate
// snapshots and cross-store observation. It is the sole surface an
// external inspector needs alongside the dispatch stream.
package directory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/store"
)

// Directory is the registry of live store instances.
// It is safe for concurrent use.
type Directory struct {
	mu sync.RWMutex
	// byType: storeType → id → instance.
	byType map[string]map[string]*store.Store
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		byType: make(map[string]map[string]*store.Store),
	}
}

// Register adds a store instance. The (storeType, id) pair must be unique
// within the directory.
func (d *Directory) Register(s *store.Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	instances, ok := d.byType[s.StoreType()]
	if !ok {
		instances = make(map[string]*store.Store)
		d.byType[s.StoreType()] = instances
	}
	if _, exists := instances[s.ID()]; exists {
		return fmt.Errorf("register %s/%s: %w", s.StoreType(), s.ID(), flopsy.ErrDuplicateStore)
	}
	instances[s.ID()] = s

	return nil
}

// Deregister removes a store instance. Removing an unknown instance is a
// no-op: stores that are never deregistered simply accumulate for the
// process lifetime.
func (d *Directory) Deregister(storeType, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	instances, ok := d.byType[storeType]
	if !ok {
		return
	}
	delete(instances, id)
	if len(instances) == 0 {
		delete(d.byType, storeType)
	}
}

// Find returns the instance registered under (storeType, id).
func (d *Directory) Find(storeType, id string) (*store.Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if s, ok := d.byType[storeType][id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("find %s/%s: %w", storeType, id, flopsy.ErrStoreNotFound)
}

// AllStoreTypes returns one representative definition per distinct store
// type with at least one live instance, sorted by type name.
func (d *Directory) AllStoreTypes() []*store.Definition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var defs []*store.Definition
	for _, instances := range d.byType {
		for _, s := range instances {
			defs = append(defs, s.Def())
			break
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].StoreType() < defs[j].StoreType() })
	return defs
}

// AllStores returns every live instance, sorted by (storeType, id).
func (d *Directory) AllStores() []*store.Store {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var stores []*store.Store
	for _, instances := range d.byType {
		for _, s := range instances {
			stores = append(stores, s)
		}
	}
	sort.Slice(stores, func(i, j int) bool {
		if stores[i].StoreType() != stores[j].StoreType() {
			return stores[i].StoreType() < stores[j].StoreType()
		}
		return stores[i].ID() < stores[j].ID()
	})
	return stores
}

// Snapshot returns, for every registered type, a mapping from instance id
// to that instance's current attribute-value mapping.
func (d *Directory) Snapshot() map[string]map[string]map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]map[string]map[string]any, len(d.byType))
	for storeType, instances := range d.byType {
		states := make(map[string]map[string]any, len(instances))
		for id, s := range instances {
			states[id] = s.State()
		}
		out[storeType] = states
	}
	return out
}
