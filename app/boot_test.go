//go:build !tinygo

package app

import (
	"errors"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"sonar/hal"
	"sonar/internal/log"
	"sonar/sonar/services/screen"

	qt "github.com/frankban/quicktest"
)

type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) WriteLineString(line string) { s.WriteLineBytes([]byte(line)) }

func (s *recordingSink) WriteLineBytes(b []byte) {
	s.mu.Lock()
	s.lines = append(s.lines, string(b))
	s.mu.Unlock()
}

func (s *recordingSink) find(msg string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, "msg="+msg) || strings.Contains(l, `msg="`+msg+`"`) {
			return l
		}
	}
	return ""
}

// loggedHAL swaps the host logger for a recording one.
type loggedHAL struct {
	hal.HAL
	sink *recordingSink
}

func (h loggedHAL) Logger() hal.Logger { return h.sink }

var errGlass = errors.New("glass unplugged")

type brokenPanel struct{}

func (brokenPanel) Size() (x, y int16)                { return 128, 32 }
func (brokenPanel) SetPixel(x, y int16, c color.RGBA) {}
func (brokenPanel) Display() error                    { return errGlass }
func (brokenPanel) ClearBuffer()                      {}

func TestBootStepLogsConsoleFailure(t *testing.T) {
	c := qt.New(t)

	sink := &recordingSink{}
	b := &boot{
		log:    log.New(sink, slog.LevelDebug),
		screen: screen.New(brokenPanel{}, 1),
	}
	b.enter("echo pin")

	line := sink.find("boot screen update failed")
	c.Assert(line, qt.Not(qt.Equals), "")
	c.Assert(line, qt.Contains, `step="echo pin"`)
	c.Assert(line, qt.Contains, "glass unplugged")
	c.Assert(b.fail(errGlass), qt.ErrorMatches, "app: echo pin: glass unplugged")
}

func TestBootStepQuietAtInfo(t *testing.T) {
	c := qt.New(t)

	sink := &recordingSink{}
	b := &boot{
		log:    log.New(sink, slog.LevelInfo),
		screen: screen.New(brokenPanel{}, 1),
	}
	b.enter("tasks")

	c.Assert(sink.find("boot"), qt.Contains, "step=tasks")
	c.Assert(sink.find("boot screen update failed"), qt.Equals, "")
}

func TestReadyLogsQueueSizesAndTaskLoggers(t *testing.T) {
	c := qt.New(t)

	cfg := testConfig()
	cfg.LogLevel = "info"
	cfg.EventQueue = 6
	cfg.ResultQueue = 4
	sink := &recordingSink{}
	_, err := New(loggedHAL{HAL: newHost(t, cfg, hal.SimConfig{DistanceCM: 50}), sink: sink}, cfg)
	c.Assert(err, qt.IsNil)

	ready := sink.find("ready")
	c.Assert(ready, qt.Contains, "event_queue=6")
	c.Assert(ready, qt.Contains, "result_queue=4")

	// Task loggers derive from the installed global logger.
	log.With("task", "render").Info("frame")
	c.Assert(sink.find("frame"), qt.Contains, "task=render")
}
