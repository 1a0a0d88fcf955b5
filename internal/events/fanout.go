// Package events delivers detection events to registered subscribers.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Handler consumes one event. A returned error is logged and does not
// affect delivery to other handlers.
type Handler[T any] func(ctx context.Context, evt T) error

// FailureHook observes handler failures, e.g. for metrics.
type FailureHook func(stream string)

// Fanout is an ordered list of handlers for one event type.
type Fanout[T any] struct {
	name     string
	mu       sync.RWMutex
	handlers []Handler[T]
	onFail   FailureHook
	logger   zerolog.Logger
}

// NewFanout constructs an empty fan-out named after the event stream.
func NewFanout[T any](name string, logger zerolog.Logger) *Fanout[T] {
	return &Fanout[T]{
		name:   name,
		logger: logger.With().Str("component", "fanout").Str("stream", name).Logger(),
	}
}

// OnFailure installs a hook invoked for every failed handler call.
func (f *Fanout[T]) OnFailure(hook FailureHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFail = hook
}

// Subscribe appends a handler. There is no unsubscribe.
func (f *Fanout[T]) Subscribe(h Handler[T]) {
	if h == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

// Len returns the number of registered handlers.
func (f *Fanout[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}

// Publish calls every handler once, in registration order, and returns the
// number of handlers that failed.
func (f *Fanout[T]) Publish(ctx context.Context, evt T) int {
	f.mu.RLock()
	handlers := make([]Handler[T], len(f.handlers))
	copy(handlers, f.handlers)
	hook := f.onFail
	f.mu.RUnlock()

	failed := 0
	for i, h := range handlers {
		if err := f.invoke(ctx, h, evt); err != nil {
			failed++
			f.logger.Error().Err(err).Int("handler", i).Msg("event handler failed")
			if hook != nil {
				hook(f.name)
			}
		}
	}
	return failed
}

func (f *Fanout[T]) invoke(ctx context.Context, h Handler[T], evt T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}
