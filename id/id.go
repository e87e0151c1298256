// Package id defines TypeID-based identity types for flopsy entities.
//
// Actions, reducer bindings, saga bindings, scheduler tasks, and stream
// subscribers all use a single ID struct with a prefix that identifies the
// entity type. IDs are K-sortable (UUIDv7-based), globally unique, and
// URL-safe in the format "prefix_suffix".
//
// Store instances are the exception: their identifiers are caller-chosen
// (or sequentially assigned) strings scoped to the store type, matching
// how stores are addressed in the directory.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all flopsy entity types.
const (
	PrefixAction     Prefix = "act"
	PrefixReducer    Prefix = "rdc"
	PrefixSaga       Prefix = "saga"
	PrefixTask       Prefix = "task"
	PrefixSubscriber Prefix = "sub"
	PrefixSyncer     Prefix = "sync"
)

// ID is the identifier type for flopsy entities. It wraps a TypeID
// providing a prefix-qualified, globally unique, sortable, URL-safe
// identifier in the format "prefix_suffix".
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "rdc_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// String returns the canonical "prefix_suffix" form, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// ActionID identifies a dispatched action (prefix: "act").
type ActionID = ID

// ReducerID identifies a reducer binding (prefix: "rdc").
type ReducerID = ID

// SagaID identifies a saga binding (prefix: "saga").
type SagaID = ID

// TaskID identifies a scheduler task (prefix: "task").
type TaskID = ID

// SubscriberID identifies a stream subscriber (prefix: "sub").
type SubscriberID = ID

// SyncerID identifies a store syncer peer (prefix: "sync").
type SyncerID = ID

// NewActionID generates a new action ID.
func NewActionID() ActionID { return New(PrefixAction) }

// NewReducerID generates a new reducer binding ID.
func NewReducerID() ReducerID { return New(PrefixReducer) }

// NewSagaID generates a new saga binding ID.
func NewSagaID() SagaID { return New(PrefixSaga) }

// NewTaskID generates a new scheduler task ID.
func NewTaskID() TaskID { return New(PrefixTask) }

// NewSubscriberID generates a new stream subscriber ID.
func NewSubscriberID() SubscriberID { return New(PrefixSubscriber) }

// NewSyncerID generates a new syncer peer ID.
func NewSyncerID() SyncerID { return New(PrefixSyncer) }
