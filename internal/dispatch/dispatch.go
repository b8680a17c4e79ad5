package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher serializes work onto a single goroutine. All window and
// view-model mutation in the application happens on this goroutine,
// regardless of which goroutine originated the triggering event.
//
// The internal queue is unbounded so work posted from inside a running
// item (e.g. a bus handler publishing a follow-up message) never blocks.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	logger zerolog.Logger
}

// New creates a Dispatcher. Run must be called before posted work executes.
func New(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		wake:   make(chan struct{}, 1),
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
}

// Post enqueues fn for execution on the dispatch goroutine. It never
// blocks and is safe to call from any goroutine, including from within
// work already running on the dispatcher.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run executes posted work in order until the context is cancelled.
// Blocks; intended to be the UI-affine goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug().Msg("Dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug().Msg("Dispatch loop stopped")
			return ctx.Err()
		case <-d.wake:
			d.drain()
		}
	}
}

// drain runs all currently queued work, including work enqueued while
// draining.
func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.runOne(fn)
	}
}

func (d *Dispatcher) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("Dispatched work panicked")
		}
	}()
	fn()
}
