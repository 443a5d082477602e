//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"machine"
)

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// machineGPIO exposes GP0..GP(count-1) as GPIO pins.
type machineGPIO struct {
	pins []GPIOPin
}

func newMachineGPIO(count int) *machineGPIO {
	g := &machineGPIO{pins: make([]GPIOPin, count)}
	for i := range g.pins {
		g.pins[i] = &machinePin{pin: machine.Pin(i), name: fmt.Sprintf("GP%d", i)}
	}
	return g
}

func (g *machineGPIO) PinCount() int { return len(g.pins) }

func (g *machineGPIO) Pin(id int) GPIOPin {
	if id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

type machinePin struct {
	pin  machine.Pin
	name string
	mode GPIOMode
}

func (p *machinePin) Name() string { return p.name }

func (p *machinePin) Caps() GPIOCaps {
	return GPIOCapInput | GPIOCapOutput | GPIOCapPullUp | GPIOCapPullDown | GPIOCapInterrupt
}

func (p *machinePin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkConfig(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}

	cfg := machine.PinConfig{Mode: machine.PinInput}
	switch {
	case mode == GPIOModeOutput:
		cfg.Mode = machine.PinOutput
	case pull == GPIOPullUp:
		cfg.Mode = machine.PinInputPullup
	case pull == GPIOPullDown:
		cfg.Mode = machine.PinInputPulldown
	}
	p.pin.Configure(cfg)
	p.mode = mode
	return nil
}

func (p *machinePin) Read() (bool, error) { return p.pin.Get(), nil }

func (p *machinePin) Write(level bool) error {
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	p.pin.Set(level)
	return nil
}

// SetInterrupt classifies each transition by sampling the line inside the IRQ:
// high after the change means it rose.
func (p *machinePin) SetInterrupt(edges GPIOEdge, handler func(GPIOEdge)) error {
	if p.mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: not configured for input", p.name)
	}
	if handler == nil || edges == 0 {
		return p.pin.SetInterrupt(0, nil)
	}

	var change machine.PinChange
	switch edges {
	case GPIOEdgeRising:
		change = machine.PinRising
	case GPIOEdgeFalling:
		change = machine.PinFalling
	default:
		change = machine.PinToggle
	}
	return p.pin.SetInterrupt(change, func(pin machine.Pin) {
		if pin.Get() {
			handler(GPIOEdgeRising)
		} else {
			handler(GPIOEdgeFalling)
		}
	})
}
