//go:build !baremetal

package hal

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

const (
	simSpeedOfSoundCMPerUS = 0.0343

	// An HC-SR04 that hears nothing holds echo high for about 38ms.
	simNoEchoWidth = 38 * time.Millisecond
	simMaxEchoCM   = 600

	// Sleeps overshoot by up to a scheduler tick; the last stretch is spun.
	simSpinWindow = 2 * time.Millisecond
)

// SimConfig describes the simulated HC-SR04 wired to the host GPIO.
type SimConfig struct {
	// DistanceCM is the distance to the simulated target.
	DistanceCM float64
	// SweepCM moves the target back and forth around DistanceCM by up to SweepCM,
	// one step per trigger.
	SweepCM float64
	// DropEvery makes every Nth trigger produce no echo at all (0 = never).
	DropEvery int
	// Latency is the delay between the trigger falling edge and the echo rising edge.
	Latency time.Duration
}

const simSweepSteps = 20

type simEchoPin struct {
	mu      sync.Mutex
	name    string
	mode    GPIOMode
	level   bool
	edges   GPIOEdge
	handler func(GPIOEdge)
}

func newSimEchoPin(name string) *simEchoPin {
	return &simEchoPin{name: name, mode: GPIOModeInput}
}

func (p *simEchoPin) Name() string { return p.name }
func (p *simEchoPin) Caps() GPIOCaps {
	return GPIOCapInput | GPIOCapPullDown | GPIOCapInterrupt
}

func (p *simEchoPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkConfig(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return nil
}

func (p *simEchoPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *simEchoPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

func (p *simEchoPin) SetInterrupt(edges GPIOEdge, handler func(GPIOEdge)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: not configured for input", p.name)
	}
	if handler == nil {
		edges = 0
	}
	p.edges = edges
	p.handler = handler
	return nil
}

// drive sets the line level and runs the interrupt handler like the NVIC would.
func (p *simEchoPin) drive(level bool) {
	p.mu.Lock()
	if p.level == level {
		p.mu.Unlock()
		return
	}
	p.level = level
	edge := GPIOEdgeFalling
	if level {
		edge = GPIOEdgeRising
	}
	handler := p.handler
	fire := p.edges&edge != 0
	p.mu.Unlock()

	if fire && handler != nil {
		handler(edge)
	}
}

type simSensor struct {
	cfg   SimConfig
	echo  *simEchoPin
	clock Clock
	after func(d time.Duration, f func())
	// waitUntil blocks until clock reaches deadline.
	waitUntil func(deadline Instant)

	mu    sync.Mutex
	high  bool
	busy  bool
	shots int
}

// newSimSensor returns a sensor timing its echo on clock, which should be the
// clock the capture handler reads. A nil after uses time.AfterFunc.
func newSimSensor(cfg SimConfig, echo *simEchoPin, clock Clock, after func(time.Duration, func())) *simSensor {
	if after == nil {
		after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}
	s := &simSensor{cfg: cfg, echo: echo, clock: clock, after: after}
	s.waitUntil = s.spinUntil
	return s
}

// onTrigger follows the trigger line; a high→low transition starts a measurement.
func (s *simSensor) onTrigger(level bool) {
	s.mu.Lock()
	if level {
		s.high = true
		s.mu.Unlock()
		return
	}
	if !s.high || s.busy {
		s.high = false
		s.mu.Unlock()
		return
	}
	s.high = false
	s.shots++
	shot := s.shots
	if s.cfg.DropEvery > 0 && shot%s.cfg.DropEvery == 0 {
		s.mu.Unlock()
		return
	}
	s.busy = true
	width := simEchoWidth(s.distanceAt(shot))
	s.mu.Unlock()

	s.after(s.cfg.Latency, func() { s.pulse(width) })
}

// pulse holds the echo line high for width. The falling edge is placed against
// the rising edge's timestamp; a second timer would add its own scheduling
// delay to the pulse.
func (s *simSensor) pulse(width time.Duration) {
	rise := s.clock.Now()
	s.echo.drive(true)
	s.waitUntil(rise.Add(width))
	s.echo.drive(false)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// spinUntil sleeps while the deadline is far and yields the rest of the way.
func (s *simSensor) spinUntil(deadline Instant) {
	for {
		left, ok := deadline.Sub(s.clock.Now())
		if !ok || left == 0 {
			return
		}
		if left > simSpinWindow {
			time.Sleep(left - simSpinWindow)
			continue
		}
		runtime.Gosched()
	}
}

func (s *simSensor) distanceAt(shot int) float64 {
	if s.cfg.SweepCM <= 0 {
		return s.cfg.DistanceCM
	}
	// Triangle wave in [-1, 1] over simSweepSteps shots.
	phase := float64(shot%simSweepSteps) / simSweepSteps
	tri := 4*phase - 1
	if phase >= 0.5 {
		tri = 3 - 4*phase
	}
	d := s.cfg.DistanceCM + tri*s.cfg.SweepCM
	if d < 0 {
		d = 0
	}
	return d
}

func simEchoWidth(cm float64) time.Duration {
	if cm > simMaxEchoCM {
		return simNoEchoWidth
	}
	us := cm * 2 / simSpeedOfSoundCMPerUS
	return time.Duration(us * float64(time.Microsecond))
}
