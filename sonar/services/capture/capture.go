// Package capture timestamps echo line transitions in interrupt context.
package capture

import (
	"sonar/hal"
	"sonar/kernel"
	"sonar/sonar/proto"
)

// Handler is the echo pin interrupt handler.
type Handler struct {
	clock  hal.Clock
	events *kernel.Ring[proto.EdgeEvent]
}

func New(clock hal.Clock, events *kernel.Ring[proto.EdgeEvent]) *Handler {
	return &Handler{clock: clock, events: events}
}

// Attach routes both edges of pin to the handler.
func (h *Handler) Attach(pin hal.InterruptPin) error {
	return pin.SetInterrupt(hal.GPIOEdgeBoth, h.Handle)
}

// Handle runs at interrupt priority. It reads the clock first, then queues the
// event; a full ring drops it and the render task later reports a timeout.
func (h *Handler) Handle(edge hal.GPIOEdge) {
	at := h.clock.Now()

	var p proto.Polarity
	switch edge {
	case hal.GPIOEdgeRising:
		p = proto.Rising
	case hal.GPIOEdgeFalling:
		p = proto.Falling
	default:
		return
	}
	h.events.TrySend(proto.EdgeEvent{Polarity: p, At: at})
}

// Dropped returns how many edges were lost to a full ring.
func (h *Handler) Dropped() uint32 { return h.events.Dropped() }
