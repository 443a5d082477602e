package kernel

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	spinLimit = 64
	idleSleep = 100 * time.Microsecond
)

// Ring is a bounded single-producer/single-consumer queue.
//
// TrySend never blocks or allocates, so it may be called from an interrupt
// handler. The consumer side blocks by spinning on Gosched and then napping,
// the way a bare-metal task idles without a wait queue.
type Ring[T any] struct {
	_       [0]func() // prevent accidental copying.
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint32

	limit uint32
	mask  uint32
	slots []T
}

// NewRing returns a ring that holds up to size items. All storage is allocated here.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	n := uint32(1)
	for n < uint32(size) {
		n <<= 1
	}
	return &Ring[T]{
		limit: uint32(size),
		mask:  n - 1,
		slots: make([]T, n),
	}
}

// Cap returns the number of items the ring holds when full.
func (r *Ring[T]) Cap() int { return int(r.limit) }

// Len returns the number of queued items.
func (r *Ring[T]) Len() int { return int(r.head.Load() - r.tail.Load()) }

// Dropped returns how many TrySend calls found the ring full.
func (r *Ring[T]) Dropped() uint32 { return r.dropped.Load() }

// TrySend enqueues v, returning false (and counting a drop) if the ring is full.
func (r *Ring[T]) TrySend(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= r.limit {
		r.dropped.Add(1)
		return false
	}
	r.slots[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// TryRecv dequeues one item, returning false if the ring is empty.
func (r *Ring[T]) TryRecv() (T, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		var zero T
		return zero, false
	}
	v := r.slots[tail&r.mask]
	r.tail.Store(tail + 1)
	return v, true
}

// Recv blocks until an item is available. It returns false only when ctx is done.
func (r *Ring[T]) Recv(ctx context.Context) (T, bool) {
	var b backoff
	for {
		if v, ok := r.TryRecv(); ok {
			return v, true
		}
		if ctx.Err() != nil {
			var zero T
			return zero, false
		}
		b.wait()
	}
}

// RecvTimeout waits up to d for an item. It returns false on timeout or when ctx is done.
func (r *Ring[T]) RecvTimeout(ctx context.Context, d time.Duration) (T, bool) {
	deadline := time.Now().Add(d)
	var b backoff
	for {
		if v, ok := r.TryRecv(); ok {
			return v, true
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			var zero T
			return zero, false
		}
		b.waitUntil(deadline)
	}
}

type backoff struct {
	spins int
}

func (b *backoff) wait() {
	if b.spins < spinLimit {
		b.spins++
		runtime.Gosched()
		return
	}
	time.Sleep(idleSleep)
}

func (b *backoff) waitUntil(deadline time.Time) {
	if b.spins < spinLimit {
		b.spins++
		runtime.Gosched()
		return
	}
	if left := time.Until(deadline); left < idleSleep {
		if left > 0 {
			time.Sleep(left)
		}
		return
	}
	time.Sleep(idleSleep)
}
