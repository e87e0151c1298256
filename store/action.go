package store

import "github.com/bgribble/flopsy/id"

// Action is an immutable message describing an intended state change.
// It is created by a store's action builders, consumed exactly once by
// dispatch, and never persisted. Callers must not modify Payload after
// construction.
type Action struct {
	ID      id.ActionID
	Type    string
	Target  *Store
	Payload map[string]any
}

// NewAction builds an action targeting the given store. A nil payload is
// treated as empty.
func NewAction(target *Store, actionType string, payload map[string]any) Action {
	return Action{
		ID:      id.NewActionID(),
		Type:    actionType,
		Target:  target,
		Payload: payload,
	}
}

// Value returns the payload's "value" field, the slot read by generated
// default transforms.
func (a Action) Value() any {
	return a.Payload["value"]
}
