package capture

import (
	"testing"

	"sonar/hal"
	"sonar/kernel"
	"sonar/sonar/proto"

	qt "github.com/frankban/quicktest"
)

type stepClock struct {
	now hal.Instant
}

func (c *stepClock) Now() hal.Instant { return c.now }

type fakeEchoPin struct {
	hal.GPIOPin
	edges   hal.GPIOEdge
	handler func(hal.GPIOEdge)
}

func (p *fakeEchoPin) SetInterrupt(edges hal.GPIOEdge, handler func(hal.GPIOEdge)) error {
	p.edges = edges
	p.handler = handler
	return nil
}

func TestHandlerStampsEdges(t *testing.T) {
	c := qt.New(t)

	clk := &stepClock{}
	events := kernel.NewRing[proto.EdgeEvent](4)
	h := New(clk, events)

	pin := &fakeEchoPin{}
	c.Assert(h.Attach(pin), qt.IsNil)
	c.Assert(pin.edges, qt.Equals, hal.GPIOEdgeBoth)

	clk.now = 1000
	pin.handler(hal.GPIOEdgeRising)
	clk.now = 1058
	pin.handler(hal.GPIOEdgeFalling)

	ev, ok := events.TryRecv()
	c.Assert(ok, qt.IsTrue)
	c.Assert(ev, qt.Equals, proto.EdgeEvent{Polarity: proto.Rising, At: 1000})
	ev, ok = events.TryRecv()
	c.Assert(ok, qt.IsTrue)
	c.Assert(ev, qt.Equals, proto.EdgeEvent{Polarity: proto.Falling, At: 1058})
}

func TestHandlerDropsWhenFull(t *testing.T) {
	c := qt.New(t)

	events := kernel.NewRing[proto.EdgeEvent](2)
	h := New(&stepClock{}, events)
	for i := 0; i < 5; i++ {
		h.Handle(hal.GPIOEdgeRising)
	}
	c.Assert(events.Len(), qt.Equals, 2)
	c.Assert(h.Dropped(), qt.Equals, uint32(3))
}

func TestHandlerIgnoresUnclassifiedEdge(t *testing.T) {
	events := kernel.NewRing[proto.EdgeEvent](2)
	New(&stepClock{}, events).Handle(hal.GPIOEdgeBoth)
	qt.Assert(t, events.Len(), qt.Equals, 0)
}
