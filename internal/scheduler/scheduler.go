package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per interval.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Name     string
	Interval time.Duration
	// StartupDelay postpones the first interval after Run is called.
	StartupDelay time.Duration
	// OnFailure is called with Name whenever a tick returns an error.
	OnFailure func(name string)
}

// Scheduler drives periodic execution of a recurring job.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Name == "" {
		opts.Name = "task"
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Str("task", opts.Name).Logger(),
	}
}

// Name returns the task name the scheduler was built with.
func (s *Scheduler) Name() string {
	return s.opts.Name
}

// Run blocks, invoking the tick function every interval until ctx is cancelled.
// A tick that has started runs to completion with a context that ignores the
// cancellation of ctx, so only future ticks are prevented.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	tickCtx := context.WithoutCancel(ctx)
	next := time.Now().UTC().Add(s.opts.Interval)
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = time.Now().UTC().Add(s.opts.Interval)
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		at := next
		s.logger.Debug().Time("tick", at).Msg("executing scheduled tick")

		if err := tick(tickCtx, at); err != nil {
			s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
			if s.opts.OnFailure != nil {
				s.opts.OnFailure(s.opts.Name)
			}
		}

		next = next.Add(s.opts.Interval)
	}
}
