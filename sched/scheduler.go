// Package sched provides the task scheduler: one designated loop goroutine
// that serializes all state mutation, plus tracked task goroutines that
// drain saga streams.
//
// Work submitted with Call runs on the loop; callers already executing on
// the loop (detected via a context mark set by the loop itself) invoke the
// function directly, everyone else submits over a channel and waits. This
// lets stores be dispatched from arbitrary goroutines while reducer
// execution stays serialized, with no locks around attribute mutation.
//
// Tracked tasks run on their own goroutines: their errors and panics are
// logged and swallowed, never propagated — a failing saga unit terminates
// alone. Completed task records are opportunistically reaped before each
// new task is added; the list is advisory bookkeeping, not backpressure.
package sched

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/bgribble/flopsy"
	"github.com/bgribble/flopsy/id"
)

// loopKey marks contexts executing on the scheduler loop.
type loopKey struct{}

// OnLoop reports whether the context is executing on the scheduler loop.
func OnLoop(ctx context.Context) bool {
	return ctx.Value(loopKey{}) != nil
}

// submission is a unit of work waiting for the loop.
type submission struct {
	ctx context.Context
	fn  func(ctx context.Context) error
	res chan error
}

// Task is the bookkeeping record for one asynchronous unit of work.
type Task struct {
	ID   id.TaskID
	Name string
	done chan struct{}
}

// Done reports whether the task has finished.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Scheduler owns the designated loop goroutine and the tracked task list.
type Scheduler struct {
	logger    *slog.Logger
	queueSize int

	calls    chan submission
	stopCh   chan struct{}
	loopDone chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	running  bool
	stopping bool
	tasks    []*Task
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQueueSize sets the capacity of the loop submission channel.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// New creates a scheduler. Call Start before submitting work.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:    logger,
		queueSize: 256,
		stopCh:    make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calls = make(chan submission, s.queueSize)
	return s
}

// Start launches the loop goroutine. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.stopping {
		// Single-use: the stop channel is already closed.
		return flopsy.ErrSchedulerStopped
	}
	s.running = true
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	go s.loop()

	s.logger.Debug("scheduler loop started", slog.Int("queue_size", s.queueSize))
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.loopDone)

	for {
		select {
		case sub := <-s.calls:
			sub.res <- sub.fn(context.WithValue(sub.ctx, loopKey{}, struct{}{}))
		case <-s.stopCh:
			// Release any callers still blocked on the channel.
			for {
				select {
				case sub := <-s.calls:
					sub.res <- flopsy.ErrSchedulerStopped
				default:
					return
				}
			}
		}
	}
}

// Call runs fn on the scheduler loop and waits for its result. When the
// caller is already on the loop, fn is invoked directly; otherwise it is
// submitted thread-safely and the caller blocks until it has run. Errors
// returned by fn propagate to the caller unchanged.
func (s *Scheduler) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if OnLoop(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return flopsy.ErrSchedulerStopped
	}

	res := make(chan error, 1)
	select {
	case s.calls <- submission{ctx: ctx, fn: fn, res: res}:
	case <-s.stopCh:
		return flopsy.ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loopDone:
		// The loop may have answered just before it shut down.
		select {
		case err := <-res:
			return err
		default:
			return flopsy.ErrSchedulerStopped
		}
	}
}

// Go schedules a tracked asynchronous unit of work on its own goroutine
// without blocking the caller. Completed task records are discarded from
// the bookkeeping list before the new one is added. The unit's error or
// panic is logged and swallowed, and its context is cancelled once it
// exits. Returns id.Nil if the scheduler is not running.
func (s *Scheduler) Go(name string, fn func(ctx context.Context) error) id.TaskID {
	s.mu.Lock()
	if !s.running || s.stopping {
		s.mu.Unlock()
		s.logger.Debug("task rejected, scheduler stopped", slog.String("task", name))
		return id.Nil
	}

	s.reapLocked()

	t := &Task{
		ID:   id.NewTaskID(),
		Name: name,
		done: make(chan struct{}),
	}
	s.tasks = append(s.tasks, t)
	s.wg.Add(1)
	// Each task gets its own cancellable context, cancelled when the task
	// exits. A stream generator still blocked in yield when its consumer
	// abandons the stream unblocks on this cancel instead of lingering
	// until shutdown.
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("task panicked",
					slog.String("task_id", t.ID.String()),
					slog.String("task", t.Name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		if err := fn(ctx); err != nil {
			s.logger.Error("task failed",
				slog.String("task_id", t.ID.String()),
				slog.String("task", t.Name),
				slog.String("error", err.Error()),
			)
		}
	}()

	return t.ID
}

// reapLocked drops completed tasks from the bookkeeping list.
// Caller holds s.mu.
func (s *Scheduler) reapLocked() {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.Done() {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
}

// TaskCount returns the number of live (unreaped, unfinished) tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	return len(s.tasks)
}

// Stop refuses new work, waits for in-flight tasks up to the context
// deadline, then cancels stragglers and shuts the loop down. Safe to call
// once; subsequent calls are no-ops.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running || s.stopping {
		s.mu.Unlock()
		return nil
	}
	// New tasks are refused from here on, but the loop stays up and Call
	// keeps working: in-flight tasks may still dispatch follow-up actions
	// while we wait for them.
	s.stopping = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		s.logger.Warn("shutdown timeout, cancelling remaining tasks")
	}

	s.cancel()
	close(s.stopCh)
	<-s.loopDone

	// A Call racing shutdown can win its enqueue select against the closed
	// stop channel after the loop's drain has returned. Answer anything
	// that slipped in so those callers are not left waiting.
drain:
	for {
		select {
		case sub := <-s.calls:
			sub.res <- flopsy.ErrSchedulerStopped
		default:
			break drain
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return err
}
