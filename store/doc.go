// Package store defines the core state-management model: store type
// definitions, store instances, actions, transforms, and state diffs.
//
// A Definition describes a store type once, at registration time: its
// attribute names, custom reducers, and whether it mirrors an external
// source of truth (synced). Declaring an attribute "count" generates a
// "SET_COUNT" action type with a default transform that replaces the value
// with the action payload's "value" field; synced definitions additionally
// generate "SYNC_COUNT" with identical behavior, distinguishable only by
// action type so observers can tell local changes from mirrored ones.
//
// A Store is a live, identified instance of a Definition. Its attribute
// values are mutated only by the dispatch engine on the scheduler loop;
// reads are safe from any goroutine.
package store
