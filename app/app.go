// Package app wires the ranging pipeline onto a HAL.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sonar/hal"
	"sonar/internal/config"
	"sonar/internal/log"
	"sonar/kernel"
	"sonar/sonar/proto"
	"sonar/sonar/services/capture"
	"sonar/sonar/services/echo"
	"sonar/sonar/services/screen"
	"sonar/sonar/tasks/render"
	"sonar/sonar/tasks/trigger"
)

// App is a fully wired pipeline ready to run.
type App struct {
	log *slog.Logger

	capture *capture.Handler
	echo    *echo.Service
	trigger *trigger.Task
	render  *render.Task
	screen  *screen.Renderer

	sys *kernel.System
}

// Stats aggregates the pipeline counters.
type Stats struct {
	EdgesDropped uint32
	Echo         echo.Stats
	Triggers     uint32
	PinFailures  uint32
	Render       render.Stats
}

// New configures the pins and panel and builds the tasks. Nothing runs until Run.
func New(h hal.HAL, cfg config.Config) (*App, error) {
	if h == nil {
		return nil, errors.New("app: nil hal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	l := log.Init(h.Logger(), cfg.LogLevel)
	b := &boot{log: l}

	b.enter("display")
	panel := h.Panel()
	if panel == nil {
		return nil, b.fail(hal.ErrNotImplemented)
	}
	scr := screen.New(panel, cfg.BarPixelsPerCM)
	b.screen = scr
	if err := scr.Boot(); err != nil {
		return nil, b.fail(err)
	}

	b.enter("trigger pin")
	trigPin, err := hal.OutputPin(h.GPIO(), cfg.TriggerPin)
	if err != nil {
		return nil, b.fail(err)
	}

	b.enter("echo pin")
	echoPin, err := hal.EdgePin(h.GPIO(), cfg.EchoPin, hal.GPIOPullDown)
	if err != nil {
		return nil, b.fail(err)
	}

	var (
		cycle   kernel.Sequence
		signal  kernel.Signal
		events  = kernel.NewRing[proto.EdgeEvent](cfg.EventQueue)
		results = kernel.NewRing[proto.DistanceSample](cfg.ResultQueue)
	)

	a := &App{
		log:     l,
		capture: capture.New(h.Clock(), events),
		echo:    echo.New(events, results, &cycle, log.With("task", "echo")),
		trigger: trigger.New(trigPin, trigger.Config{
			Period:     cfg.Period,
			PulseWidth: cfg.PulseWidth,
		}, &cycle, &signal, log.With("task", "trigger")),
		render: render.New(&signal, results, scr, render.Config{
			HandshakeTimeout: cfg.HandshakeTimeout,
			SampleTimeout:    cfg.SampleTimeout,
			MaxRangeCM:       cfg.MaxRangeCM,
			StrictCycles:     cfg.StrictCycles,
		}, log.With("task", "render")),
		screen: scr,
		sys:    kernel.NewSystem(),
	}
	a.render.OnCycle(a.logCycle)

	b.enter("echo interrupt")
	if err := a.capture.Attach(echoPin); err != nil {
		return nil, b.fail(err)
	}

	b.enter("tasks")
	for _, t := range []struct {
		name string
		task kernel.Task
	}{
		{"trigger", a.trigger},
		{"echo", a.echo},
		{"render", a.render},
	} {
		if _, err := a.sys.AddTask(t.name, t.task); err != nil {
			return nil, b.fail(err)
		}
	}

	installPanicHandler(h.Logger(), scr)
	l.Info("ready",
		"trigger", trigPin.Name(),
		"echo", echoPin.Name(),
		"period", cfg.Period,
		"event_queue", events.Cap(),
		"result_queue", results.Cap(),
		"strict_cycles", cfg.StrictCycles,
	)
	return a, nil
}

// Run starts the tasks and blocks until ctx is done or a task fails.
func (a *App) Run(ctx context.Context) error {
	return a.sys.Run(ctx)
}

// Stats returns a snapshot of every pipeline counter.
func (a *App) Stats() Stats {
	return Stats{
		EdgesDropped: a.capture.Dropped(),
		Echo:         a.echo.Stats(),
		Triggers:     a.trigger.Fired(),
		PinFailures:  a.trigger.PinFailures(),
		Render:       a.render.Stats(),
	}
}

func (a *App) logCycle(res render.Result, rs render.Stats) {
	if !a.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	es := a.echo.Stats()
	a.log.Debug("cycle",
		"cycle", res.Cycle,
		"outcome", res.Outcome,
		"cm", res.Sample.CM,
		"edges_dropped", a.capture.Dropped(),
		"published", es.Published,
		"samples_dropped", es.Dropped,
		"spurious", es.Spurious,
		"negative", es.Negative,
		"stale", rs.Stale,
		"timeouts", rs.Timeouts,
		"out_of_range", rs.OutOfRange,
		"readings", rs.Readings,
	)
}
