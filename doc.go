// Package flopsy provides a Redux-inspired in-process state management core
// for Go. Stores hold typed, named state; actions mutate that state through
// registered pure transforms (reducers); state changes trigger asynchronous
// effect chains (sagas) that dispatch further actions.
//
// Flopsy is designed as a library, not a service. Declare store types,
// create a runtime, and dispatch actions as ordinary Go values.
//
// # Quick Start
//
//	def := store.NewDefinition("Counter",
//	    store.WithAttrs("count"),
//	)
//
//	rt, err := engine.New(engine.WithLogger(logger))
//	if err != nil { ... }
//	if err := rt.Start(ctx); err != nil { ... }
//
//	s, err := rt.NewStore(ctx, def)
//	if err != nil { ... }
//
//	// Declared attributes get SET_* action types with default transforms.
//	if err := s.Dispatch(ctx, s.Set("count", 5)); err != nil { ... }
//
// # Architecture
//
// The engine package owns a single dispatch runtime: reducer and saga
// registries keyed by store type, a store directory for introspection, and
// a task scheduler with one designated loop goroutine. All state mutation
// is serialized onto that loop; dispatches may originate from any
// goroutine. Sagas produce lazy streams of follow-up actions drained by
// tracked scheduler tasks.
//
// Binding and task IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package flopsy
