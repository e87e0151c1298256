package flopsy

import "time"

// Config holds configuration for the dispatch runtime.
type Config struct {
	// LoopQueueSize is the capacity of the scheduler loop's submission
	// channel. Dispatches from non-loop goroutines block once it fills.
	LoopQueueSize int

	// ShutdownTimeout is the maximum time to wait for in-flight saga
	// tasks during graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LoopQueueSize:   256,
		ShutdownTimeout: 30 * time.Second,
	}
}
