// Package echo pairs echo line edges into distance samples.
package echo

import (
	"context"
	"log/slog"
	"sync/atomic"

	"sonar/hal"
	"sonar/internal/log"
	"sonar/kernel"
	"sonar/sonar/proto"
)

// Stats is a snapshot of the processor's counters.
type Stats struct {
	Published   uint32
	Dropped     uint32 // samples lost to a full result ring
	Spurious    uint32 // falling edges with nothing armed
	Overwritten uint32 // rising edges that replaced an armed one
	Negative    uint32 // pairs whose falling edge preceded the rising one
}

type counters struct {
	published   atomic.Uint32
	dropped     atomic.Uint32
	spurious    atomic.Uint32
	overwritten atomic.Uint32
	negative    atomic.Uint32
}

// Service is the echo processor task. Its pending-edge latch is private to Run.
type Service struct {
	events  *kernel.Ring[proto.EdgeEvent]
	results *kernel.Ring[proto.DistanceSample]
	cycle   *kernel.Sequence
	log     *slog.Logger

	armed  bool
	rising hal.Instant
	tag    uint32

	n counters
}

// New returns an echo processor. cycle may be nil, in which case samples carry cycle 0.
func New(
	events *kernel.Ring[proto.EdgeEvent],
	results *kernel.Ring[proto.DistanceSample],
	cycle *kernel.Sequence,
	l *slog.Logger,
) *Service {
	return &Service{
		events:  events,
		results: results,
		cycle:   cycle,
		log:     log.Or(l),
	}
}

// Run consumes edges until ctx is done. Waiting for the next edge is its only
// suspension point and has no timeout: no edges simply means no echoes.
func (s *Service) Run(ctx context.Context) error {
	for {
		ev, ok := s.events.Recv(ctx)
		if !ok {
			return ctx.Err()
		}
		s.process(ev)
	}
}

// Poll processes every queued edge without blocking and returns how many
// samples were published.
func (s *Service) Poll() int {
	n := 0
	for {
		ev, ok := s.events.TryRecv()
		if !ok {
			return n
		}
		if s.process(ev) {
			n++
		}
	}
}

func (s *Service) process(ev proto.EdgeEvent) bool {
	sample, ok := s.Handle(ev)
	if !ok {
		return false
	}
	if !s.results.TrySend(sample) {
		s.n.dropped.Add(1)
		s.log.Debug("result ring full, sample dropped", "cm", sample.CM, "cycle", sample.Cycle)
		return false
	}
	s.n.published.Add(1)
	return true
}

// Handle advances the Idle/Armed state machine by one edge and returns the
// sample completed by it, if any.
func (s *Service) Handle(ev proto.EdgeEvent) (proto.DistanceSample, bool) {
	switch ev.Polarity {
	case proto.Rising:
		if s.armed {
			s.n.overwritten.Add(1)
		}
		s.armed = true
		s.rising = ev.At
		s.tag = s.currentCycle()
		return proto.DistanceSample{}, false

	case proto.Falling:
		if !s.armed {
			s.n.spurious.Add(1)
			return proto.DistanceSample{}, false
		}
		s.armed = false
		elapsed, ok := ev.At.Sub(s.rising)
		if !ok {
			s.n.negative.Add(1)
			s.log.Debug("falling edge before rising edge", "rising", uint64(s.rising), "falling", uint64(ev.At))
			return proto.DistanceSample{}, false
		}
		return proto.DistanceSample{
			CM:      proto.DistanceCM(elapsed),
			Elapsed: elapsed,
			Cycle:   s.tag,
		}, true
	}
	return proto.DistanceSample{}, false
}

// Armed reports whether a rising edge is waiting for its falling edge.
func (s *Service) Armed() bool { return s.armed }

// Stats returns a snapshot of the counters. Safe to call from any task.
func (s *Service) Stats() Stats {
	return Stats{
		Published:   s.n.published.Load(),
		Dropped:     s.n.dropped.Load(),
		Spurious:    s.n.spurious.Load(),
		Overwritten: s.n.overwritten.Load(),
		Negative:    s.n.negative.Load(),
	}
}

func (s *Service) currentCycle() uint32 {
	if s.cycle == nil {
		return 0
	}
	return s.cycle.Load()
}
