// Command edgereplay feeds a scripted echo line trace through the capture,
// echo and render stages and prints what the panel would show.
//
// Script lines (blank lines and # comments are ignored):
//
//	rise <us>       rising echo edge at <us> since boot
//	fall <us>       falling echo edge at <us>
//	pair <us> <us>  rising then falling edge
//	trigger         fire the trigger (new cycle, handshake raised)
//	render          run one render cycle
//	cycle           trigger, then render
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"sonar/hal"
	"sonar/internal/config"
	"sonar/internal/log"
	"sonar/kernel"
	"sonar/sonar/proto"
	"sonar/sonar/services/capture"
	"sonar/sonar/services/echo"
	"sonar/sonar/tasks/render"
	"sonar/sonar/tasks/trigger"

	"github.com/google/shlex"
)

func main() {
	cfg := config.Default()
	var (
		strict   = flag.Bool("strict", cfg.StrictCycles, "Discard samples from earlier cycles.")
		maxRange = flag.Float64("max-range", cfg.MaxRangeCM, "Largest distance (cm) shown as a reading.")
		window   = flag.Duration("window", time.Millisecond, "Render wait for a sample. Replay samples are already queued.")
		level    = flag.String("log-level", "warn", "debug, info, warn or error.")
	)
	flag.Parse()

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fatalf("%v", err)
		}
		defer f.Close()
		in = f
	}

	cfg.StrictCycles = *strict
	cfg.MaxRangeCM = *maxRange
	cfg.SampleTimeout = *window
	cfg.LogLevel = *level

	r := newReplay(cfg, os.Stdout)
	if err := r.run(in); err != nil {
		fatalf("%v", err)
	}
	r.summary()
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "edgereplay: "+format+"\n", args...)
	os.Exit(1)
}

// scriptClock is set by each edge command before the capture handler reads it.
type scriptClock struct{ now hal.Instant }

func (c *scriptClock) Now() hal.Instant { return c.now }

type nopPin struct{}

func (nopPin) Write(bool) error { return nil }

// printScreen writes each frame as a line of text.
type printScreen struct {
	w     io.Writer
	cycle *kernel.Sequence
}

func (s printScreen) Reading(cm float64) error {
	_, err := fmt.Fprintf(s.w, "cycle %d: Dist: %.2f cm\n", s.cycle.Load(), cm)
	return err
}

func (s printScreen) OutOfRange() error {
	_, err := fmt.Fprintf(s.w, "cycle %d: Falha ao medir Distancia\n", s.cycle.Load())
	return err
}

func (s printScreen) SensorTimeout() error {
	_, err := fmt.Fprintf(s.w, "cycle %d: Sensor Falhou!\n", s.cycle.Load())
	return err
}

type replay struct {
	out     io.Writer
	clock   *scriptClock
	capture *capture.Handler
	echo    *echo.Service
	trigger *trigger.Task
	render  *render.Task
}

func newReplay(cfg config.Config, out io.Writer) *replay {
	var (
		cycle   kernel.Sequence
		signal  kernel.Signal
		clock   = &scriptClock{}
		events  = kernel.NewRing[proto.EdgeEvent](cfg.EventQueue)
		results = kernel.NewRing[proto.DistanceSample](cfg.ResultQueue)
	)
	l := log.Init(stderrSink{}, cfg.LogLevel)
	return &replay{
		out:     out,
		clock:   clock,
		capture: capture.New(clock, events),
		echo:    echo.New(events, results, &cycle, l),
		trigger: trigger.New(nopPin{}, trigger.Config{Period: cfg.Period}, &cycle, &signal, l),
		render: render.New(&signal, results, printScreen{w: out, cycle: &cycle}, render.Config{
			// The handshake is always raised before render in a script.
			HandshakeTimeout: time.Millisecond,
			SampleTimeout:    cfg.SampleTimeout,
			MaxRangeCM:       cfg.MaxRangeCM,
			StrictCycles:     cfg.StrictCycles,
		}, l),
	}
}

func (r *replay) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for line := 1; sc.Scan(); line++ {
		args, err := shlex.Split(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(args) == 0 {
			continue
		}
		if err := r.exec(args); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, args[0], err)
		}
	}
	return sc.Err()
}

func (r *replay) exec(args []string) error {
	ctx := context.Background()
	switch args[0] {
	case "rise", "fall":
		at, err := instants(args[1:], 1)
		if err != nil {
			return err
		}
		r.edge(args[0] == "rise", at[0])
	case "pair":
		at, err := instants(args[1:], 2)
		if err != nil {
			return err
		}
		r.edge(true, at[0])
		r.edge(false, at[1])
	case "trigger":
		r.trigger.Fire(ctx)
	case "render":
		if _, ok := r.render.Cycle(ctx); !ok {
			fmt.Fprintln(r.out, "no handshake")
		}
	case "cycle":
		r.trigger.Fire(ctx)
		r.render.Cycle(ctx)
	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}

func (r *replay) edge(rising bool, at hal.Instant) {
	r.clock.now = at
	edge := hal.GPIOEdgeFalling
	if rising {
		edge = hal.GPIOEdgeRising
	}
	r.capture.Handle(edge)
	r.echo.Poll()
}

func (r *replay) summary() {
	es, rs := r.echo.Stats(), r.render.Stats()
	fmt.Fprintf(r.out, "edges dropped=%d published=%d samples dropped=%d spurious=%d negative=%d\n",
		r.capture.Dropped(), es.Published, es.Dropped, es.Spurious, es.Negative)
	fmt.Fprintf(r.out, "cycles=%d readings=%d out-of-range=%d timeouts=%d stale=%d\n",
		rs.Cycles, rs.Readings, rs.OutOfRange, rs.Timeouts, rs.Stale)
}

func instants(args []string, n int) ([]hal.Instant, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d timestamp(s), got %d", n, len(args))
	}
	out := make([]hal.Instant, n)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = hal.Instant(v)
	}
	return out, nil
}

type stderrSink struct{}

func (stderrSink) WriteLineString(s string) { fmt.Fprintln(os.Stderr, s) }
func (stderrSink) WriteLineBytes(b []byte) {
	os.Stderr.Write(b)
	os.Stderr.Write([]byte{'\n'})
}
