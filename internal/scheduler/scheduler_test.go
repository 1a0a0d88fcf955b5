package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopWithoutStartIsNoop(t *testing.T) {
	task := NewTask(New(Options{Name: "idle", Interval: time.Second}, zerolog.Nop()), func(ctx context.Context, at time.Time) error {
		return nil
	})

	task.Stop()
	task.Stop()
	assert.False(t, task.Running())
}

func TestTaskTicksUntilStopped(t *testing.T) {
	var ticks atomic.Int64
	task := NewTask(New(Options{Name: "fast", Interval: 10 * time.Millisecond}, zerolog.Nop()), func(ctx context.Context, at time.Time) error {
		ticks.Add(1)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	assert.ErrorIs(t, task.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)

	task.Stop()
	task.Stop()
	stoppedAt := ticks.Load()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, stoppedAt, ticks.Load())
	assert.False(t, task.Running())
}

func TestFailedTickDoesNotStopSchedule(t *testing.T) {
	var ticks, failures atomic.Int64
	sched := New(Options{
		Name:      "flaky",
		Interval:  10 * time.Millisecond,
		OnFailure: func(string) { failures.Add(1) },
	}, zerolog.Nop())
	task := NewTask(sched, func(ctx context.Context, at time.Time) error {
		ticks.Add(1)
		return errors.New("provider down")
	})

	require.NoError(t, task.Start(context.Background()))
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	task.Stop()

	assert.GreaterOrEqual(t, failures.Load(), int64(3))
}

func TestInFlightTickCompletes(t *testing.T) {
	started := make(chan struct{})
	var completed atomic.Bool
	var tickErr atomic.Value

	task := NewTask(New(Options{Name: "slow", Interval: 5 * time.Millisecond}, zerolog.Nop()), func(ctx context.Context, at time.Time) error {
		select {
		case <-started:
			return nil
		default:
			close(started)
		}
		time.Sleep(30 * time.Millisecond)
		if ctx.Err() != nil {
			tickErr.Store(ctx.Err())
		}
		completed.Store(true)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	<-started
	task.Stop()

	assert.True(t, completed.Load())
	assert.Nil(t, tickErr.Load())
}

func TestStartupDelayPostponesFirstTick(t *testing.T) {
	var ticks atomic.Int64
	sched := New(Options{Name: "delayed", Interval: 5 * time.Millisecond, StartupDelay: 80 * time.Millisecond}, zerolog.Nop())
	task := NewTask(sched, func(ctx context.Context, at time.Time) error {
		ticks.Add(1)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	defer task.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, ticks.Load())
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestStopDuringStartupDelay(t *testing.T) {
	var ticks atomic.Int64
	sched := New(Options{Name: "delayed", Interval: time.Millisecond, StartupDelay: time.Hour}, zerolog.Nop())
	task := NewTask(sched, func(ctx context.Context, at time.Time) error {
		ticks.Add(1)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	task.Stop()
	assert.False(t, task.Running())
	assert.Zero(t, ticks.Load())
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { New(Options{}, zerolog.Nop()) })
}
