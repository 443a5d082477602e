package config

import (
	"flag"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(cfg.Period, qt.Equals, time.Second)
	c.Assert(cfg.PulseWidth, qt.Equals, 10*time.Microsecond)
	c.Assert(cfg.HandshakeTimeout, qt.Equals, 100*time.Millisecond)
	c.Assert(cfg.SampleTimeout, qt.Equals, 50*time.Millisecond)
	c.Assert(cfg.MaxRangeCM, qt.Equals, 400.0)
	c.Assert(cfg.StrictCycles, qt.IsTrue)
}

func TestApplyEnv(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"SONAR_TRIGGER_PIN":   "2",
		"SONAR_PERIOD":        "250ms",
		"SONAR_MAX_RANGE_CM":  "250.5",
		"SONAR_STRICT_CYCLES": "false",
		"SONAR_LOG_LEVEL":     "debug",
		"SONAR_ECHO_PIN":      "",
	}))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.TriggerPin, qt.Equals, 2)
	c.Assert(cfg.EchoPin, qt.Equals, 16)
	c.Assert(cfg.Period, qt.Equals, 250*time.Millisecond)
	c.Assert(cfg.MaxRangeCM, qt.Equals, 250.5)
	c.Assert(cfg.StrictCycles, qt.IsFalse)
	c.Assert(cfg.LogLevel, qt.Equals, "debug")
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"SONAR_ECHO_PIN":      "sixteen",
		"SONAR_SAMPLE_TIMEOUT": "soon",
	}))
	c.Assert(err, qt.ErrorMatches, `(?s)config: SONAR_ECHO_PIN: .*\nconfig: SONAR_SAMPLE_TIMEOUT: .*`)
	c.Assert(cfg.EchoPin, qt.Equals, 16)
	c.Assert(cfg.SampleTimeout, qt.Equals, 50*time.Millisecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"shared pin", func(c *Config) { c.EchoPin = c.TriggerPin }, `config: trigger and echo share pin 5`},
		{"zero period", func(c *Config) { c.Period = 0 }, `config: period must be positive, got 0s`},
		{"pulse too long", func(c *Config) { c.PulseWidth = 2 * time.Second }, `config: pulse width 2s does not fit in period 1s`},
		{"tiny event queue", func(c *Config) { c.EventQueue = 1 }, `config: event queue must hold at least one edge pair, got 1`},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, `config: log: unknown level "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			qt.Assert(t, cfg.Validate(), qt.ErrorMatches, tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.TriggerPin = -1
	cfg.SampleTimeout = -time.Millisecond
	qt.Assert(t, cfg.Validate(), qt.ErrorMatches, "config: trigger pin -1 is negative\nconfig: sample timeout must be positive, got -1ms")
}

func TestBindFlags(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	fs := flag.NewFlagSet("sonar", flag.ContinueOnError)
	cfg.BindFlags(fs)
	c.Assert(fs.Parse([]string{"-period=2s", "-strict-cycles=false", "-bar-scale=0.32"}), qt.IsNil)
	c.Assert(cfg.Period, qt.Equals, 2*time.Second)
	c.Assert(cfg.StrictCycles, qt.IsFalse)
	c.Assert(cfg.BarPixelsPerCM, qt.Equals, 0.32)
	c.Assert(cfg.TriggerPin, qt.Equals, 5)
}
