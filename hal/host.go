//go:build !baremetal

package hal

import (
	"fmt"
	"os"
	"sync"
)

const hostMinPins = 8

// HostConfig wires the host HAL: which virtual pins the sensor sits on, the panel
// geometry and the simulated sensor behavior.
type HostConfig struct {
	TriggerPin int
	EchoPin    int
	Width      int
	Height     int
	Sim        SimConfig
}

type hostHAL struct {
	logger *hostLogger
	clock  Clock
	gpio   GPIO
	panel  *hostPanel
	sensor *simSensor
}

// DefaultHostConfig is the stock wiring: trigger on pin 5, echo on pin 16, a
// 128x32 panel and a target 100cm away.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		TriggerPin: 5,
		EchoPin:    16,
		Width:      128,
		Height:     32,
		Sim:        SimConfig{DistanceCM: 100},
	}
}

// NewHost returns a host HAL with a simulated HC-SR04 on cfg.TriggerPin/cfg.EchoPin.
func NewHost(cfg HostConfig) (HAL, error) {
	return newHostHAL(cfg)
}

func newHostHAL(cfg HostConfig) (*hostHAL, error) {
	if cfg.TriggerPin < 0 || cfg.EchoPin < 0 {
		return nil, fmt.Errorf("hal: negative pin id (trigger=%d echo=%d)", cfg.TriggerPin, cfg.EchoPin)
	}
	if cfg.TriggerPin == cfg.EchoPin {
		return nil, fmt.Errorf("hal: trigger and echo share pin %d", cfg.TriggerPin)
	}
	if cfg.Width <= 0 {
		cfg.Width = 128
	}
	if cfg.Height <= 0 {
		cfg.Height = 32
	}

	count := hostMinPins
	for _, id := range []int{cfg.TriggerPin + 1, cfg.EchoPin + 1} {
		if id > count {
			count = id
		}
	}

	pins := make([]GPIOPin, count)
	for i := range pins {
		pins[i] = newVirtualPin(fmt.Sprintf("GPIO%d", i), GPIOCapInput|GPIOCapOutput|GPIOCapPullUp|GPIOCapPullDown)
	}

	clock := NewMonotonicClock()
	echo := newSimEchoPin(fmt.Sprintf("GPIO%d", cfg.EchoPin))
	sensor := newSimSensor(cfg.Sim, echo, clock, nil)
	trig := pins[cfg.TriggerPin].(*virtualPin)
	trig.watch = sensor.onTrigger
	pins[cfg.EchoPin] = echo

	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		clock:  clock,
		gpio:   newVirtualGPIO(pins),
		panel:  newHostPanel(cfg.Width, cfg.Height),
		sensor: sensor,
	}, nil
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) Clock() Clock   { return h.clock }
func (h *hostHAL) GPIO() GPIO     { return h.gpio }
func (h *hostHAL) Panel() Panel   { return h.panel }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
