// Package render turns each trigger cycle into exactly one screen update.
package render

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"sonar/internal/log"
	"sonar/kernel"
	"sonar/sonar/proto"
)

// Outcome is what a cycle shows.
type Outcome uint8

const (
	Reading Outcome = iota + 1
	OutOfRange
	SensorTimeout
)

func (o Outcome) String() string {
	switch o {
	case Reading:
		return "reading"
	case OutOfRange:
		return "out-of-range"
	case SensorTimeout:
		return "sensor-timeout"
	default:
		return "unknown"
	}
}

// Decide picks the outcome for a cycle. ok is false when no sample arrived in time.
func Decide(sample proto.DistanceSample, ok bool, maxRangeCM float64) Outcome {
	switch {
	case !ok:
		return SensorTimeout
	case sample.CM > maxRangeCM:
		return OutOfRange
	default:
		return Reading
	}
}

// Screen draws one complete frame per call.
type Screen interface {
	Reading(cm float64) error
	OutOfRange() error
	SensorTimeout() error
}

type Config struct {
	HandshakeTimeout time.Duration
	SampleTimeout    time.Duration
	MaxRangeCM       float64
	// StrictCycles discards samples whose echo started before the current trigger.
	StrictCycles bool
}

// Stats counts cycles by outcome.
type Stats struct {
	Cycles     uint32
	Readings   uint32
	OutOfRange uint32
	Timeouts   uint32
	Stale      uint32 // samples discarded as belonging to an earlier cycle
	Idle       uint32 // handshake waits that timed out
	DrawErrors uint32
}

// Result describes one rendered cycle.
type Result struct {
	Cycle   uint32
	Outcome Outcome
	Sample  proto.DistanceSample
}

// Task is the render coordinator.
type Task struct {
	signal  *kernel.Signal
	results *kernel.Ring[proto.DistanceSample]
	screen  Screen
	cfg     Config
	log     *slog.Logger

	report func(Result, Stats)

	cycles     atomic.Uint32
	readings   atomic.Uint32
	outOfRange atomic.Uint32
	timeouts   atomic.Uint32
	stale      atomic.Uint32
	idle       atomic.Uint32
	drawErrors atomic.Uint32
}

// New returns a render task.
func New(signal *kernel.Signal, results *kernel.Ring[proto.DistanceSample], screen Screen, cfg Config, l *slog.Logger) *Task {
	return &Task{signal: signal, results: results, screen: screen, cfg: cfg, log: log.Or(l)}
}

// OnCycle registers fn to be called after every rendered cycle. Must be set before Run.
func (t *Task) OnCycle(fn func(Result, Stats)) { t.report = fn }

// Run renders cycles until ctx is done.
func (t *Task) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		t.Cycle(ctx)
	}
	return ctx.Err()
}

// Cycle waits for one handshake and renders its outcome. It returns false when
// no handshake arrived within HandshakeTimeout.
func (t *Task) Cycle(ctx context.Context) (Result, bool) {
	cycle, ok := t.signal.Take(ctx, t.cfg.HandshakeTimeout)
	if !ok {
		t.idle.Add(1)
		return Result{}, false
	}

	sample, ok := t.awaitSample(ctx, cycle)
	if ctx.Err() != nil {
		return Result{}, false
	}
	res := Result{Cycle: cycle, Outcome: Decide(sample, ok, t.cfg.MaxRangeCM), Sample: sample}

	var err error
	switch res.Outcome {
	case Reading:
		t.readings.Add(1)
		err = t.screen.Reading(sample.CM)
	case OutOfRange:
		t.outOfRange.Add(1)
		err = t.screen.OutOfRange()
	case SensorTimeout:
		t.timeouts.Add(1)
		err = t.screen.SensorTimeout()
	}
	if err != nil {
		t.drawErrors.Add(1)
		t.log.Warn("display update failed", "cycle", cycle, "outcome", res.Outcome, "err", err)
	}
	t.cycles.Add(1)

	if t.report != nil {
		t.report(res, t.Stats())
	}
	return res, true
}

// awaitSample receives the cycle's sample within SampleTimeout. Stale samples
// are dropped without extending the window.
func (t *Task) awaitSample(ctx context.Context, cycle uint32) (proto.DistanceSample, bool) {
	deadline := time.Now().Add(t.cfg.SampleTimeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return proto.DistanceSample{}, false
		}
		sample, ok := t.results.RecvTimeout(ctx, left)
		if !ok {
			return proto.DistanceSample{}, false
		}
		if t.cfg.StrictCycles && before(sample.Cycle, cycle) {
			t.stale.Add(1)
			continue
		}
		return sample, true
	}
}

// before reports whether cycle a precedes b, allowing for wrap.
func before(a, b uint32) bool { return int32(a-b) < 0 }

// Stats returns a snapshot of the counters.
func (t *Task) Stats() Stats {
	return Stats{
		Cycles:     t.cycles.Load(),
		Readings:   t.readings.Load(),
		OutOfRange: t.outOfRange.Load(),
		Timeouts:   t.timeouts.Load(),
		Stale:      t.stale.Load(),
		Idle:       t.idle.Load(),
		DrawErrors: t.drawErrors.Load(),
	}
}
