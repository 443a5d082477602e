package echo

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"sonar/hal"
	"sonar/kernel"
	"sonar/sonar/proto"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func rise(at hal.Instant) proto.EdgeEvent { return proto.EdgeEvent{Polarity: proto.Rising, At: at} }
func fall(at hal.Instant) proto.EdgeEvent { return proto.EdgeEvent{Polarity: proto.Falling, At: at} }

func newTestService(cycle *kernel.Sequence) *Service {
	return New(kernel.NewRing[proto.EdgeEvent](10), kernel.NewRing[proto.DistanceSample](10), cycle, nil)
}

func TestHandleMatchedPair(t *testing.T) {
	c := qt.New(t)

	s := newTestService(nil)
	_, ok := s.Handle(rise(1000))
	c.Assert(ok, qt.IsFalse)
	c.Assert(s.Armed(), qt.IsTrue)

	sample, ok := s.Handle(fall(1058))
	c.Assert(ok, qt.IsTrue)
	c.Assert(s.Armed(), qt.IsFalse)
	c.Assert(sample.Elapsed, qt.Equals, 58*time.Microsecond)
	c.Assert(sample.CM, qt.CmpEquals(cmpopts.EquateApprox(0, 1e-3)), 0.994)
}

func TestHandleLoneFallingStaysIdle(t *testing.T) {
	c := qt.New(t)

	s := newTestService(nil)
	_, ok := s.Handle(fall(500))
	c.Assert(ok, qt.IsFalse)
	c.Assert(s.Armed(), qt.IsFalse)
	c.Assert(s.Stats().Spurious, qt.Equals, uint32(1))
}

func TestHandleRisingOverwrites(t *testing.T) {
	c := qt.New(t)

	s := newTestService(nil)
	s.Handle(rise(1000))
	s.Handle(rise(2000))
	sample, ok := s.Handle(fall(2100))
	c.Assert(ok, qt.IsTrue)
	c.Assert(sample.Elapsed, qt.Equals, 100*time.Microsecond)
	c.Assert(s.Stats().Overwritten, qt.Equals, uint32(1))
}

func TestHandleNegativeElapsedDiscards(t *testing.T) {
	c := qt.New(t)

	s := newTestService(nil)
	s.Handle(rise(5000))
	_, ok := s.Handle(fall(4000))
	c.Assert(ok, qt.IsFalse)
	c.Assert(s.Armed(), qt.IsFalse)
	c.Assert(s.Stats().Negative, qt.Equals, uint32(1))

	// Back in Idle: the next falling edge is spurious, not a match.
	_, ok = s.Handle(fall(6000))
	c.Assert(ok, qt.IsFalse)
	c.Assert(s.Stats().Spurious, qt.Equals, uint32(1))
}

func TestHandleZeroElapsed(t *testing.T) {
	s := newTestService(nil)
	s.Handle(rise(7))
	sample, ok := s.Handle(fall(7))
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, sample.CM, qt.Equals, 0.0)
}

func TestHandleRepeatedPairsAreIdentical(t *testing.T) {
	c := qt.New(t)

	s := newTestService(nil)
	var first proto.DistanceSample
	for i := 0; i < 50; i++ {
		base := hal.Instant(i) * 1_000_000
		s.Handle(rise(base + 1000))
		sample, ok := s.Handle(fall(base + 1580))
		c.Assert(ok, qt.IsTrue)
		if i == 0 {
			first = sample
			continue
		}
		c.Assert(sample, qt.Equals, first)
	}
}

func TestHandleTagsCycleAtRisingEdge(t *testing.T) {
	c := qt.New(t)

	var seq kernel.Sequence
	s := newTestService(&seq)

	seq.Next()
	s.Handle(rise(10))
	// The trigger task moving on before the falling edge does not retag the echo.
	seq.Next()
	sample, ok := s.Handle(fall(20))
	c.Assert(ok, qt.IsTrue)
	c.Assert(sample.Cycle, qt.Equals, uint32(1))
}

// TestHandleMatchesModel checks the emit-iff rule against a direct model over
// random edge sequences.
func TestHandleMatchesModel(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 200; run++ {
		s := newTestService(nil)

		var (
			now     hal.Instant = 1_000_000
			pending *hal.Instant
		)
		for i := 0; i < 40; i++ {
			// Occasionally step the clock backwards to exercise the negative path.
			if rng.Intn(10) == 0 {
				now -= hal.Instant(rng.Intn(500))
			} else {
				now += hal.Instant(rng.Intn(30000))
			}

			var ev proto.EdgeEvent
			if rng.Intn(2) == 0 {
				ev = rise(now)
			} else {
				ev = fall(now)
			}

			var want bool
			var wantCM float64
			switch ev.Polarity {
			case proto.Rising:
				at := now
				pending = &at
			case proto.Falling:
				if pending != nil && now >= *pending {
					want = true
					wantCM = float64(now-*pending) * 0.0343 / 2
				}
				pending = nil
			}

			got, ok := s.Handle(ev)
			c.Assert(ok, qt.Equals, want, qt.Commentf("run %d edge %d %v", run, i, ev))
			if want {
				c.Assert(got.CM, qt.CmpEquals(cmpopts.EquateApprox(0, 1e-9)), wantCM)
			}
			c.Assert(s.Armed(), qt.Equals, pending != nil)
		}
	}
}

func TestRunPublishesAndDropsOnFull(t *testing.T) {
	c := qt.New(t)

	events := kernel.NewRing[proto.EdgeEvent](16)
	results := kernel.NewRing[proto.DistanceSample](1)
	s := New(events, results, nil, nil)

	for _, ev := range []proto.EdgeEvent{rise(0), fall(100), rise(200), fall(300)} {
		c.Assert(events.TrySend(ev), qt.IsTrue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for events.Len() > 0 || s.Stats().Published+s.Stats().Dropped < 2 {
		if time.Now().After(deadline) {
			c.Fatal("processor did not drain events")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	c.Assert(<-done, qt.ErrorIs, context.Canceled)

	st := s.Stats()
	c.Assert(st.Published, qt.Equals, uint32(1))
	c.Assert(st.Dropped, qt.Equals, uint32(1))

	sample, ok := results.TryRecv()
	c.Assert(ok, qt.IsTrue)
	c.Assert(sample.Elapsed, qt.Equals, 100*time.Microsecond)
}

func TestPollDrainsWithoutBlocking(t *testing.T) {
	c := qt.New(t)

	events := kernel.NewRing[proto.EdgeEvent](8)
	results := kernel.NewRing[proto.DistanceSample](8)
	s := New(events, results, nil, nil)

	c.Assert(s.Poll(), qt.Equals, 0)
	for _, ev := range []proto.EdgeEvent{fall(1), rise(10), fall(20), rise(30)} {
		events.TrySend(ev)
	}
	c.Assert(s.Poll(), qt.Equals, 1)
	c.Assert(s.Armed(), qt.IsTrue)
	c.Assert(results.Len(), qt.Equals, 1)
}
