package hal

import (
	"fmt"
	"sync"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
	GPIOCapInterrupt
)

// GPIOEdge is a set of signal transitions.
type GPIOEdge uint8

const (
	GPIOEdgeRising GPIOEdge = 1 << iota
	GPIOEdgeFalling

	GPIOEdgeBoth = GPIOEdgeRising | GPIOEdgeFalling
)

func (e GPIOEdge) String() string {
	switch e {
	case GPIOEdgeRising:
		return "rising"
	case GPIOEdgeFalling:
		return "falling"
	case GPIOEdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// GPIO provides access to general-purpose IO pins.
//
// Implementations may return nil if GPIO is unsupported.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

// InterruptPin is an input pin that reports transitions asynchronously.
//
// The handler runs in interrupt context: it must not block, allocate or log.
// It receives the single edge that fired.
type InterruptPin interface {
	GPIOPin
	SetInterrupt(edges GPIOEdge, handler func(GPIOEdge)) error
}

// OutputPin returns pin id configured as a push-pull output driven low.
func OutputPin(g GPIO, id int) (GPIOPin, error) {
	pin, err := lookupPin(g, id)
	if err != nil {
		return nil, err
	}
	if pin.Caps()&GPIOCapOutput == 0 {
		return nil, fmt.Errorf("gpio: pin %s: output unsupported", pin.Name())
	}
	if err := pin.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		return nil, err
	}
	if err := pin.Write(false); err != nil {
		return nil, err
	}
	return pin, nil
}

// EdgePin returns pin id configured as an input that can raise edge interrupts.
func EdgePin(g GPIO, id int, pull GPIOPull) (InterruptPin, error) {
	pin, err := lookupPin(g, id)
	if err != nil {
		return nil, err
	}
	ip, ok := pin.(InterruptPin)
	if !ok || pin.Caps()&GPIOCapInterrupt == 0 {
		return nil, fmt.Errorf("gpio: pin %s: interrupts unsupported", pin.Name())
	}
	if err := pin.Configure(GPIOModeInput, pull); err != nil {
		return nil, err
	}
	return ip, nil
}

func lookupPin(g GPIO, id int) (GPIOPin, error) {
	if g == nil {
		return nil, fmt.Errorf("gpio: %w", ErrNotImplemented)
	}
	if id < 0 || id >= g.PinCount() {
		return nil, fmt.Errorf("gpio: pin %d: out of range (have %d)", id, g.PinCount())
	}
	pin := g.Pin(id)
	if pin == nil {
		return nil, fmt.Errorf("gpio: pin %d: unavailable", id)
	}
	return pin, nil
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int      { return 0 }
func (nullGPIO) Pin(id int) GPIOPin { return nil }

type virtualGPIO struct {
	pins []GPIOPin
}

func newVirtualGPIO(pins []GPIOPin) GPIO {
	if len(pins) == 0 {
		return nullGPIO{}
	}
	return &virtualGPIO{pins: pins}
}

func (g *virtualGPIO) PinCount() int {
	if g == nil {
		return 0
	}
	return len(g.pins)
}

func (g *virtualGPIO) Pin(id int) GPIOPin {
	if g == nil || id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

type virtualPin struct {
	mu    sync.Mutex
	name  string
	caps  GPIOCaps
	mode  GPIOMode
	pull  GPIOPull
	level bool

	// watch observes output transitions; called without mu held.
	watch func(level bool)
}

func newVirtualPin(name string, caps GPIOCaps) *virtualPin {
	return &virtualPin{
		name: name,
		caps: caps,
		mode: GPIOModeInput,
		pull: GPIOPullNone,
	}
}

func (p *virtualPin) Name() string   { return p.name }
func (p *virtualPin) Caps() GPIOCaps { return p.caps }

func (p *virtualPin) Configure(mode GPIOMode, pull GPIOPull) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkConfig(p.name, p.caps, mode, pull); err != nil {
		return err
	}
	p.mode = mode
	p.pull = pull
	return nil
}

func (p *virtualPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeInput && p.mode != GPIOModeOutput {
		return false, fmt.Errorf("gpio: pin %s: not configured", p.name)
	}
	return p.level, nil
}

func (p *virtualPin) Write(level bool) error {
	p.mu.Lock()
	if p.mode != GPIOModeOutput {
		p.mu.Unlock()
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	changed := p.level != level
	p.level = level
	watch := p.watch
	p.mu.Unlock()

	if changed && watch != nil {
		watch(level)
	}
	return nil
}

func checkConfig(name string, caps GPIOCaps, mode GPIOMode, pull GPIOPull) error {
	switch mode {
	case GPIOModeInput:
		if caps&GPIOCapInput == 0 {
			return fmt.Errorf("gpio: pin %s: input unsupported", name)
		}
	case GPIOModeOutput:
		if caps&GPIOCapOutput == 0 {
			return fmt.Errorf("gpio: pin %s: output unsupported", name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", name)
	}

	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		if caps&GPIOCapPullUp == 0 {
			return fmt.Errorf("gpio: pin %s: pull-up unsupported", name)
		}
	case GPIOPullDown:
		if caps&GPIOCapPullDown == 0 {
			return fmt.Errorf("gpio: pin %s: pull-down unsupported", name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid pull", name)
	}
	return nil
}
