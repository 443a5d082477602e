package hal

import "time"

// Instant is an absolute monotonic timestamp in microseconds since boot.
//
// Elapsed time between two instants is a time.Duration and only comes from Sub.
type Instant uint64

// Sub returns t-earlier. ok is false when t precedes earlier, which happens on
// counter wrap or a corrupted timestamp.
func (t Instant) Sub(earlier Instant) (d time.Duration, ok bool) {
	if t < earlier {
		return 0, false
	}
	return time.Duration(t-earlier) * time.Microsecond, true
}

// Add returns t+d, truncated to whole microseconds.
func (t Instant) Add(d time.Duration) Instant {
	if d < 0 {
		us := Instant(-d / time.Microsecond)
		if us > t {
			return 0
		}
		return t - us
	}
	return t + Instant(d/time.Microsecond)
}

// Clock supplies monotonic timestamps. Now must not block; it is called from
// interrupt handlers.
type Clock interface {
	Now() Instant
}

type monotonicClock struct {
	boot time.Time
}

// NewMonotonicClock returns a clock counting microseconds from the call.
func NewMonotonicClock() Clock {
	return &monotonicClock{boot: time.Now()}
}

func (c *monotonicClock) Now() Instant {
	return Instant(time.Since(c.boot) / time.Microsecond)
}
