// Package handoff implements the single-slot latch between a media pipeline's
// streaming thread (producer) and the host render loop (consumer).
//
// Philosophy: skip a frame rather than stall the producer.
//
//	streaming thread ──TryOffer──▶ [ slot ] ──Take──▶ host render loop
//	 (never blocks)      drop on     latest      (blocking lock,
//	                     contention   wins        swap out)
//
// The latch is a capacity-1 mailbox: the producer's send is non-blocking, the
// consumer's receive is blocking-or-latest (Wait then Take).
package handoff

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Wait once the latch has been closed.
var ErrClosed = errors.New("handoff: latch closed")

// Stats is a snapshot of latch counters.
type Stats struct {
	// Offered counts producer attempts that reached the slot or were dropped
	// (accepted + dropped). Abandoned offers are not included.
	Offered uint64
	// Dropped counts producer attempts that found the lock held.
	Dropped uint64
	// Abandoned counts offers whose write declined the slot.
	Abandoned uint64
	// Overwritten counts accepted offers that replaced an unconsumed slot.
	Overwritten uint64
	// Taken counts consumer swaps.
	Taken uint64
}

// Latch guards a single slot of type T.
//
// Slot state machine:
//
//	Empty  ── producer lock+write ──▶ Filled ── consumer take ──▶ Empty
//	Filled ── producer lock+write ──▶ Filled   (newer frame wins)
//	Filled ── producer try fails  ──▶ Filled   (new sample dropped)
//
// available=true implies a complete write happened since the last Take.
// outdated=true means the consumer-side pixel view does not reflect the latest
// write yet.
type Latch[T any] struct {
	mu   sync.Mutex
	slot T

	available atomic.Bool
	newFrame  atomic.Bool
	outdated  atomic.Bool
	closed    atomic.Bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	offered     atomic.Uint64
	dropped     atomic.Uint64
	abandoned   atomic.Uint64
	overwritten atomic.Uint64
	taken       atomic.Uint64
}

// New creates an empty latch.
func New[T any]() *Latch[T] {
	l := &Latch[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	l.outdated.Store(true)
	return l
}

// TryOffer is the producer path. If the lock is free, write runs on the slot
// and the slot is published; otherwise the offer is dropped without touching
// the slot. Never blocks.
//
// write may return false to abandon the offer (e.g. a malformed sample); the
// slot flags are then left unchanged. A latch closed while the producer was
// acquiring the lock refuses the offer without calling write.
func (l *Latch[T]) TryOffer(write func(slot *T) bool) bool {
	if l.closed.Load() {
		return false
	}

	if !l.mu.TryLock() {
		l.offered.Add(1)
		l.dropped.Add(1)
		return false
	}
	defer l.mu.Unlock()

	if l.closed.Load() {
		return false
	}
	if !write(&l.slot) {
		l.abandoned.Add(1)
		return false
	}
	l.offered.Add(1)

	if l.available.Load() {
		l.overwritten.Add(1)
	}
	l.available.Store(true)
	l.outdated.Store(true)

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

// Take is the consumer path. It blocks on the lock, runs read on the slot and
// marks it consumed: available=false, newFrame=true. Returns false when the
// slot was not available (read is not called).
func (l *Latch[T]) Take(read func(slot *T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.available.Load() {
		return false
	}
	read(&l.slot)
	l.available.Store(false)
	l.newFrame.Store(true)
	l.taken.Add(1)
	return true
}

// With runs fn on the slot under the blocking lock without changing any flag.
// Used by consumer-side accessors (pixel refresh, disposal).
func (l *Latch[T]) With(fn func(slot *T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.slot)
}

// Wait blocks until a slot is available, ctx is done, or the latch is closed.
func (l *Latch[T]) Wait(ctx context.Context) error {
	for {
		if l.available.Load() {
			return nil
		}
		if l.closed.Load() {
			return ErrClosed
		}
		select {
		case <-l.notify:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		}
	}
}

// Available reports whether a published slot awaits Take.
func (l *Latch[T]) Available() bool { return l.available.Load() }

// NewFrame reports the newFrame edge without clearing it.
func (l *Latch[T]) NewFrame() bool { return l.newFrame.Load() }

// ConsumeNewFrame returns and clears the newFrame edge.
func (l *Latch[T]) ConsumeNewFrame() bool { return l.newFrame.Swap(false) }

// ResetNewFrame clears the newFrame edge.
func (l *Latch[T]) ResetNewFrame() { l.newFrame.Store(false) }

// Outdated reports whether the consumer pixel view is stale.
func (l *Latch[T]) Outdated() bool { return l.outdated.Load() }

// MarkFresh clears the outdated flag after a consumer-side refresh.
func (l *Latch[T]) MarkFresh() { l.outdated.Store(false) }

// MarkOutdated forces the next pixel accessor to refresh.
func (l *Latch[T]) MarkOutdated() { l.outdated.Store(true) }

// Close wakes waiters and rejects further offers. Idempotent.
func (l *Latch[T]) Close() {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Closed reports whether Close was called.
func (l *Latch[T]) Closed() bool { return l.closed.Load() }

// Stats returns a snapshot of the counters.
func (l *Latch[T]) Stats() Stats {
	return Stats{
		Offered:     l.offered.Load(),
		Dropped:     l.dropped.Load(),
		Abandoned:   l.abandoned.Load(),
		Overwritten: l.overwritten.Load(),
		Taken:       l.taken.Load(),
	}
}
