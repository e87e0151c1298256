// Package stream provides a real-time event broker for store lifecycle
// events. It bridges the ext.Extension system to in-process inspectors
// (debug UIs, log tails, test probes) via topic-based pub/sub.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Store events.
	EventStoreRegistered EventType = "store.registered"

	// Action events.
	EventActionDispatched EventType = "action.dispatched"

	// Saga events.
	EventSagaStarted   EventType = "saga.started"
	EventSagaCompleted EventType = "saga.completed"
	EventSagaFailed    EventType = "saga.failed"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the instance-specific channel this event was published on.
	Topic string `json:"topic"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// StoreEventData is the payload for store lifecycle events.
type StoreEventData struct {
	StoreType string   `json:"store_type"`
	StoreID   string   `json:"store_id"`
	Attrs     []string `json:"attrs,omitempty"`
}

// ActionEventData is the payload for dispatch events.
type ActionEventData struct {
	StoreType  string   `json:"store_type"`
	StoreID    string   `json:"store_id"`
	ActionID   string   `json:"action_id"`
	ActionType string   `json:"action_type"`
	Changed    []string `json:"changed,omitempty"`
}

// SagaEventData is the payload for saga lifecycle events.
type SagaEventData struct {
	StoreType string `json:"store_type"`
	StoreID   string `json:"store_id"`
	SagaID    string `json:"saga_id"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Emitted   int    `json:"emitted,omitempty"`
	Error     string `json:"error,omitempty"`
}
