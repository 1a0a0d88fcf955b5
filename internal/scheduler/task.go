package scheduler

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned by Start on a task that is running.
var ErrAlreadyRunning = errors.New("task already running")

// Task is a start/stop handle around a Scheduler loop.
//
// Lifecycle: idle -> running -> stopped. A stopped task may be started again.
type Task struct {
	sched *Scheduler
	tick  TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask binds a tick function to a scheduler.
func NewTask(sched *Scheduler, tick TickFunc) *Task {
	return &Task{sched: sched, tick: tick}
}

// Start launches the recurring loop in its own goroutine.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go func() {
		defer close(done)
		if err := t.sched.Run(runCtx, t.tick); err != nil && !errors.Is(err, context.Canceled) {
			t.sched.logger.Warn().Err(err).Msg("scheduler exited")
		}
	}()

	t.sched.logger.Info().Dur("interval", t.sched.opts.Interval).Msg("task started")
	return nil
}

// Stop prevents future ticks and waits for an in-flight tick to finish.
// Stopping a task that is not running is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.sched.logger.Info().Msg("task stopped")
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
