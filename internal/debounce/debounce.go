// Package debounce coalesces bursts of partial updates into a single write.
//
// A Debouncer accumulates field→value updates in a pending buffer (last value
// per field wins) and restarts a quiet-period timer on every Schedule call.
// When the timer fires, the whole buffer is handed to the sink in one call and
// a fresh buffer starts. Failed flushes are reported, not retried.
package debounce

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/miracckms/Couse-Selector-Advance/internal/metrics"
	"github.com/rs/zerolog"
)

// Sink receives one merged batch per quiet period.
type Sink[K comparable, V any] func(ctx context.Context, batch map[K]V) error

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc matches time.AfterFunc and can be swapped out in tests.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Debouncer.
type Options struct {
	// OnError observes flush failures.
	OnError func(err error)
	// OnFlushStart and OnFlushEnd bracket every sink call.
	OnFlushStart func()
	OnFlushEnd   func()
	AfterFunc    AfterFunc
	Logger       *zerolog.Logger
	Metrics      *metrics.Metrics
}

// Debouncer is a merging debounce over map-shaped partial updates.
type Debouncer[K comparable, V any] struct {
	delay time.Duration
	sink  Sink[K, V]
	opts  Options

	mu      sync.Mutex
	pending map[K]V
	timer   Timer
	gen     uint64
	closed  bool

	// flushMu is held from taking a batch until the sink returns, so batches
	// reach the sink in order and Flush waits out a timer-driven flush.
	flushMu sync.Mutex
}

func New[K comparable, V any](delay time.Duration, sink Sink[K, V], opts Options) *Debouncer[K, V] {
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &Debouncer[K, V]{
		delay:   delay,
		sink:    sink,
		opts:    opts,
		pending: make(map[K]V),
	}
}

// Schedule merges update into the pending buffer and restarts the quiet
// period. It never blocks on the sink. Updates after Close are dropped.
func (d *Debouncer[K, V]) Schedule(update map[K]V) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	maps.Copy(d.pending, update)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.opts.AfterFunc(d.delay, func() { d.fire(gen) })

	d.opts.Metrics.Scheduled()
}

// Pending returns a copy of the buffer awaiting the next flush.
func (d *Debouncer[K, V]) Pending() map[K]V {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.pending)
}

// fire runs on the timer goroutine. A timer that was superseded by a later
// Schedule may still fire if Stop lost the race; the generation check turns
// it into a no-op so the newer quiet period is honoured.
func (d *Debouncer[K, V]) fire(gen uint64) {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()

	d.deliver(context.Background(), batch)
}

// Flush sends the pending buffer now instead of waiting for the timer and
// returns the sink's error. It waits for a flush already in progress.
func (d *Debouncer[K, V]) Flush(ctx context.Context) error {
	return d.flush(ctx, false)
}

// Close flushes whatever is pending and rejects further updates.
func (d *Debouncer[K, V]) Close(ctx context.Context) error {
	return d.flush(ctx, true)
}

func (d *Debouncer[K, V]) flush(ctx context.Context, closing bool) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if closing {
		d.closed = true
	}
	batch := d.takeLocked()
	d.mu.Unlock()

	return d.deliver(ctx, batch)
}

func (d *Debouncer[K, V]) takeLocked() map[K]V {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	if len(d.pending) == 0 {
		return nil
	}
	batch := d.pending
	d.pending = make(map[K]V)
	return batch
}

// deliver runs with flushMu held.
func (d *Debouncer[K, V]) deliver(ctx context.Context, batch map[K]V) error {
	if len(batch) == 0 {
		return nil
	}

	if d.opts.OnFlushStart != nil {
		d.opts.OnFlushStart()
	}
	err := d.sink(ctx, batch)
	if d.opts.OnFlushEnd != nil {
		d.opts.OnFlushEnd()
	}

	d.opts.Metrics.ObserveFlush(len(batch), err)
	if err != nil {
		if d.opts.Logger != nil {
			d.opts.Logger.Error().Err(err).Int("fields", len(batch)).Msg("Debounced flush failed")
		}
		if d.opts.OnError != nil {
			d.opts.OnError(err)
		}
		return err
	}
	if d.opts.Logger != nil {
		d.opts.Logger.Debug().Int("fields", len(batch)).Msg("Debounced flush delivered")
	}
	return nil
}
