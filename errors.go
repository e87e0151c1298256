package flopsy

import "errors"

var (
	// Directory errors.
	ErrStoreNotFound  = errors.New("flopsy: store not found")
	ErrDuplicateStore = errors.New("flopsy: duplicate store type/id pair")

	// Definition errors.
	ErrUnknownAttr       = errors.New("flopsy: unknown state attribute")
	ErrUnknownActionType = errors.New("flopsy: no transform for action type")

	// Registry errors.
	ErrBindingNotFound = errors.New("flopsy: binding not found")

	// Scheduler errors.
	ErrSchedulerStopped = errors.New("flopsy: scheduler stopped")
	ErrNotStarted       = errors.New("flopsy: runtime not started")

	// Stream errors.
	ErrStreamDone = errors.New("flopsy: stream exhausted")

	// Dispatch errors.
	ErrThrottled = errors.New("flopsy: dispatch throttled")
	ErrNilTarget = errors.New("flopsy: action has no target store")
)
