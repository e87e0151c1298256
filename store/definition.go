package store

import (
	"context"
	"strconv"
	"sync/atomic"
)

// Transform computes an attribute's new value from the old one and an
// action. Transforms must be pure functions of their inputs; the engine
// runs them synchronously on the scheduler loop and does not catch their
// errors — a failing transform aborts that dispatch for the caller.
type Transform func(ctx context.Context, s *Store, a Action, attr string, old any) (any, error)

// transformSpec pairs a transform with the attribute it is bound to.
// attr is empty for custom reducers, which are bound to attributes
// explicitly at install time.
type transformSpec struct {
	fn   Transform
	attr string
}

// Definition describes a store type: its name, declared attributes,
// transforms, and ancestry. It replaces class-definition-time code
// generation with an explicit registration step executed once per type.
//
// Definitions are read-only after NewDefinition returns, except for the
// atomic instance-id counter, and safe for concurrent use.
type Definition struct {
	storeType  string
	synced     bool
	parent     *Definition
	ownAttrs   []string
	transforms map[string]transformSpec

	nextID atomic.Int64
}

// DefOption configures a Definition under construction.
type DefOption func(*Definition)

// WithAttrs declares state attributes. Each name generates a SET_<NAME>
// action type with a default transform that replaces the attribute's value
// with the payload's "value" field (and SYNC_<NAME> on synced types).
func WithAttrs(names ...string) DefOption {
	return func(d *Definition) {
		d.ownAttrs = append(d.ownAttrs, names...)
	}
}

// WithReducer associates a custom transform with an action type. The
// transform is connected to dispatch by installing it on the runtime with
// the attribute names it affects.
func WithReducer(actionType string, fn Transform) DefOption {
	return func(d *Definition) {
		d.transforms[actionType] = transformSpec{fn: fn}
	}
}

// Synced marks the store type as mirroring an external source of truth,
// generating SYNC_* action types alongside the SET_* setters.
func Synced() DefOption {
	return func(d *Definition) {
		d.synced = true
	}
}

// Extends sets an ancestor definition. The recognized attribute set of the
// type is the union of its own attributes and all ancestors'; ancestor
// transforms resolve through the chain.
func Extends(parent *Definition) DefOption {
	return func(d *Definition) {
		d.parent = parent
	}
}

// NewDefinition creates a store type definition. Generated setter action
// types and default transforms are installed for every declared attribute.
func NewDefinition(storeType string, opts ...DefOption) *Definition {
	d := &Definition{
		storeType:  storeType,
		transforms: make(map[string]transformSpec),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, attr := range d.ownAttrs {
		d.transforms[SetAction(attr)] = transformSpec{fn: defaultSetter, attr: attr}
		if d.synced {
			d.transforms[SyncAction(attr)] = transformSpec{fn: defaultSetter, attr: attr}
		}
	}

	return d
}

// defaultSetter is the generated transform backing SET_*/SYNC_* action
// types: it unconditionally replaces the attribute's value with the
// payload's "value" field.
func defaultSetter(_ context.Context, _ *Store, a Action, _ string, _ any) (any, error) {
	return a.Payload["value"], nil
}

// StoreType returns the type name used for aggregation.
func (d *Definition) StoreType() string { return d.storeType }

// Synced reports whether the type generates SYNC_* action types.
func (d *Definition) Synced() bool { return d.synced }

// Parent returns the ancestor definition, or nil.
func (d *Definition) Parent() *Definition { return d.parent }

// Attrs returns the recognized attribute names: the union of the names
// declared by this definition and all of its ancestors, ancestors first.
// Each name resolves to one live value on an instance even when declared
// at multiple levels.
func (d *Definition) Attrs() []string {
	var names []string
	seen := make(map[string]struct{})

	var collect func(*Definition)
	collect = func(def *Definition) {
		if def == nil {
			return
		}
		collect(def.parent)
		for _, attr := range def.ownAttrs {
			if _, dup := seen[attr]; dup {
				continue
			}
			seen[attr] = struct{}{}
			names = append(names, attr)
		}
	}
	collect(d)

	return names
}

// HasAttr reports whether name is a recognized attribute of this type.
func (d *Definition) HasAttr(name string) bool {
	for def := d; def != nil; def = def.parent {
		for _, attr := range def.ownAttrs {
			if attr == name {
				return true
			}
		}
	}
	return false
}

// Transform resolves the transform associated with an action type, walking
// the ancestry chain. The nearest definition wins.
func (d *Definition) Transform(actionType string) (Transform, bool) {
	for def := d; def != nil; def = def.parent {
		if spec, ok := def.transforms[actionType]; ok {
			return spec.fn, true
		}
	}
	return nil, false
}

// Fallback resolves the generated default transform for an action type
// along with the attribute it is bound to. Custom reducers have no bound
// attribute and are not part of the fallback path; they take effect only
// when installed.
func (d *Definition) Fallback(actionType string) (Transform, string, bool) {
	for def := d; def != nil; def = def.parent {
		if spec, ok := def.transforms[actionType]; ok && spec.attr != "" {
			return spec.fn, spec.attr, true
		}
	}
	return nil, "", false
}

// nextAutoID returns the next sequential instance identifier for this type.
func (d *Definition) nextAutoID() string {
	return strconv.FormatInt(d.nextID.Add(1), 10)
}
