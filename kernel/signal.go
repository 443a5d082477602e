package kernel

import (
	"context"
	"sync/atomic"
	"time"
)

// Sequence hands out increasing, non-zero sequence numbers. One writer, any readers.
type Sequence struct {
	n atomic.Uint32
}

// Next advances the sequence and returns the new value, skipping 0 on wrap.
func (s *Sequence) Next() uint32 {
	for {
		if v := s.n.Add(1); v != 0 {
			return v
		}
	}
}

// Load returns the last value handed out by Next (0 before the first call).
func (s *Sequence) Load() uint32 { return s.n.Load() }

// Signal is a single-slot, coalescing handshake.
//
// Give raises the signal with a non-zero sequence number; giving again before a
// Take replaces the number, so at most one signal is ever pending and the taker
// always sees the latest.
type Signal struct {
	slot atomic.Uint32
}

// Give raises the signal. seq 0 is reserved for "empty" and is sent as 1.
func (s *Signal) Give(seq uint32) {
	if seq == 0 {
		seq = 1
	}
	s.slot.Store(seq)
}

// Pending reports whether a Give has not been taken yet.
func (s *Signal) Pending() bool { return s.slot.Load() != 0 }

// TryTake consumes a pending signal without blocking.
func (s *Signal) TryTake() (uint32, bool) {
	v := s.slot.Swap(0)
	return v, v != 0
}

// Take waits up to d for the signal. It returns false on timeout or when ctx is done.
func (s *Signal) Take(ctx context.Context, d time.Duration) (uint32, bool) {
	deadline := time.Now().Add(d)
	var b backoff
	for {
		if v, ok := s.TryTake(); ok {
			return v, true
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return 0, false
		}
		b.waitUntil(deadline)
	}
}
