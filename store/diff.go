package store

import "sort"

// Change records an attribute's old and new value for one dispatch.
type Change struct {
	Old any
	New any
}

// Diff maps attribute names to their (old, new) values, covering only
// attributes that actually changed during one dispatch. It is constructed
// fresh per dispatch, passed to sagas, then discarded.
type Diff map[string]Change

// Changed returns the changed attribute names in sorted order.
func (d Diff) Changed() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of the diff. Values are shared; the map is
// independent, so sagas may hold the diff across the dispatch boundary.
func (d Diff) Clone() Diff {
	out := make(Diff, len(d))
	for name, c := range d {
		out[name] = c
	}
	return out
}

// noValue is the sentinel type for "no previous value" in init diffs.
// It is unexported so NoValue is the only value of its type, distinct
// from anything a store attribute can hold.
type noValue struct{}

// NoValue marks "no previous value" as the old value in the diff produced
// by the synthetic initialization dispatch.
var NoValue = noValue{}

func (noValue) String() string { return "<no value>" }
