// Package config holds the tunables of the ranging pipeline.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"sonar/internal/log"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "SONAR_"

// Config is the full set of pipeline settings.
type Config struct {
	TriggerPin int
	EchoPin    int

	// Period is the trigger cadence.
	Period time.Duration
	// PulseWidth is the logical trigger pulse width. The real pulse is at least this long.
	PulseWidth time.Duration

	HandshakeTimeout time.Duration
	SampleTimeout    time.Duration

	// MaxRangeCM is the largest distance still rendered as a reading.
	MaxRangeCM float64

	EventQueue  int
	ResultQueue int

	// StrictCycles makes the render task discard samples from an earlier trigger cycle.
	StrictCycles bool

	BarPixelsPerCM float64

	LogLevel string
}

// Default returns the stock HC-SR04 settings.
func Default() Config {
	return Config{
		TriggerPin:       5,
		EchoPin:          16,
		Period:           time.Second,
		PulseWidth:       10 * time.Microsecond,
		HandshakeTimeout: 100 * time.Millisecond,
		SampleTimeout:    50 * time.Millisecond,
		MaxRangeCM:       400,
		EventQueue:       10,
		ResultQueue:      10,
		StrictCycles:     true,
		BarPixelsPerCM:   1,
		LogLevel:         "info",
	}
}

// ApplyEnv overrides fields from SONAR_* variables found through lookup
// (os.LookupEnv on the host). Every malformed value is reported.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return v, ok && v != ""
	}
	intVar := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	durVar := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	floatVar := func(key string, dst *float64) {
		if v, ok := get(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}

	intVar("TRIGGER_PIN", &c.TriggerPin)
	intVar("ECHO_PIN", &c.EchoPin)
	durVar("PERIOD", &c.Period)
	durVar("PULSE_WIDTH", &c.PulseWidth)
	durVar("HANDSHAKE_TIMEOUT", &c.HandshakeTimeout)
	durVar("SAMPLE_TIMEOUT", &c.SampleTimeout)
	floatVar("MAX_RANGE_CM", &c.MaxRangeCM)
	intVar("EVENT_QUEUE", &c.EventQueue)
	intVar("RESULT_QUEUE", &c.ResultQueue)
	floatVar("BAR_PX_PER_CM", &c.BarPixelsPerCM)
	if v, ok := get("STRICT_CYCLES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sSTRICT_CYCLES: %w", EnvPrefix, err))
		} else {
			c.StrictCycles = b
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return errors.Join(errs...)
}

// BindFlags registers one flag per field on fs, defaulting to the current values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.TriggerPin, "trigger-pin", c.TriggerPin, "Trigger output pin.")
	fs.IntVar(&c.EchoPin, "echo-pin", c.EchoPin, "Echo input pin.")
	fs.DurationVar(&c.Period, "period", c.Period, "Trigger period.")
	fs.DurationVar(&c.PulseWidth, "pulse-width", c.PulseWidth, "Trigger pulse width.")
	fs.DurationVar(&c.HandshakeTimeout, "handshake-timeout", c.HandshakeTimeout, "Render wait for a trigger.")
	fs.DurationVar(&c.SampleTimeout, "sample-timeout", c.SampleTimeout, "Render wait for a sample after a trigger.")
	fs.Float64Var(&c.MaxRangeCM, "max-range", c.MaxRangeCM, "Largest distance (cm) shown as a reading.")
	fs.IntVar(&c.EventQueue, "event-queue", c.EventQueue, "Edge event ring size.")
	fs.IntVar(&c.ResultQueue, "result-queue", c.ResultQueue, "Distance sample ring size.")
	fs.BoolVar(&c.StrictCycles, "strict-cycles", c.StrictCycles, "Discard samples from earlier trigger cycles.")
	fs.Float64Var(&c.BarPixelsPerCM, "bar-scale", c.BarPixelsPerCM, "Bar pixels per cm.")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error.")
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}
	if c.TriggerPin < 0 {
		bad("trigger pin %d is negative", c.TriggerPin)
	}
	if c.EchoPin < 0 {
		bad("echo pin %d is negative", c.EchoPin)
	}
	if c.TriggerPin == c.EchoPin {
		bad("trigger and echo share pin %d", c.TriggerPin)
	}
	if c.Period <= 0 {
		bad("period must be positive, got %v", c.Period)
	}
	if c.PulseWidth <= 0 {
		bad("pulse width must be positive, got %v", c.PulseWidth)
	}
	if c.PulseWidth >= c.Period && c.Period > 0 {
		bad("pulse width %v does not fit in period %v", c.PulseWidth, c.Period)
	}
	if c.HandshakeTimeout <= 0 {
		bad("handshake timeout must be positive, got %v", c.HandshakeTimeout)
	}
	if c.SampleTimeout <= 0 {
		bad("sample timeout must be positive, got %v", c.SampleTimeout)
	}
	if c.MaxRangeCM <= 0 {
		bad("max range must be positive, got %g", c.MaxRangeCM)
	}
	if c.EventQueue < 2 {
		bad("event queue must hold at least one edge pair, got %d", c.EventQueue)
	}
	if c.ResultQueue < 1 {
		bad("result queue must hold at least one sample, got %d", c.ResultQueue)
	}
	if c.BarPixelsPerCM < 0 {
		bad("bar scale must not be negative, got %g", c.BarPixelsPerCM)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}
