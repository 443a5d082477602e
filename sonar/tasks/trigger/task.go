// Package trigger fires the sensor once per period and tells the render task
// which cycle just started.
package trigger

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"sonar/internal/log"
	"sonar/kernel"
)

// Pin is the trigger output.
type Pin interface {
	Write(level bool) error
}

// Config sets the pulse shape and cadence.
type Config struct {
	Period     time.Duration
	PulseWidth time.Duration
}

// Task drives the trigger line.
type Task struct {
	pin    Pin
	cfg    Config
	cycle  *kernel.Sequence
	signal *kernel.Signal
	log    *slog.Logger

	fired      atomic.Uint32
	pinFailure atomic.Uint32
}

// New returns a trigger task. cycle and signal are shared with the echo and render tasks.
func New(pin Pin, cfg Config, cycle *kernel.Sequence, signal *kernel.Signal, l *slog.Logger) *Task {
	return &Task{pin: pin, cfg: cfg, cycle: cycle, signal: signal, log: log.Or(l)}
}

// Run fires until ctx is done. Cycles are scheduled from the start of the first
// one so a slow pulse does not drift the cadence.
func (t *Task) Run(ctx context.Context) error {
	next := time.Now()
	for {
		t.Fire(ctx)

		next = next.Add(t.cfg.Period)
		if now := time.Now(); next.Before(now) {
			// Overran by whole periods: skip them rather than bursting.
			missed := now.Sub(next)/t.cfg.Period + 1
			next = next.Add(missed * t.cfg.Period)
		}
		if !sleepUntil(ctx, next) {
			return ctx.Err()
		}
	}
}

// Fire emits one pulse and raises the handshake with the new cycle number.
// The handshake is raised even when the pin fails so the render task reports
// the missing echo.
func (t *Task) Fire(ctx context.Context) uint32 {
	cycle := t.cycle.Next()

	if err := t.pin.Write(true); err != nil {
		t.writeFailed(cycle, err)
	} else {
		sleepUntil(ctx, time.Now().Add(t.cfg.PulseWidth))
		if err := t.pin.Write(false); err != nil {
			t.writeFailed(cycle, err)
		}
	}

	t.signal.Give(cycle)
	t.fired.Add(1)
	return cycle
}

// Fired returns how many pulses have been emitted.
func (t *Task) Fired() uint32 { return t.fired.Load() }

// PinFailures returns how many trigger writes failed.
func (t *Task) PinFailures() uint32 { return t.pinFailure.Load() }

func (t *Task) writeFailed(cycle uint32, err error) {
	t.pinFailure.Add(1)
	t.log.Warn("trigger write failed", "cycle", cycle, "err", err)
}

// sleepUntil blocks until deadline or ctx is done and reports whether the
// deadline was reached. Sub-millisecond waits spin on the scheduler; a timer
// would round them up to the tick.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err() == nil
	}
	if d < time.Millisecond {
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return false
			}
			runtime.Gosched()
		}
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
