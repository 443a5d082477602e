//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"sonar/app"
	"sonar/hal"
	"sonar/internal/config"
)

func main() {
	cfg := config.Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var (
		headless hal.HeadlessConfig
		sim      hal.SimConfig
	)
	cfg.BindFlags(flag.CommandLine)
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 30, "Panel poll rate in headless mode.")
	flag.DurationVar(&headless.Duration, "for", 0, "Stop after this long in headless mode (0 = run until Ctrl-C).")
	flag.BoolVar(&headless.DumpFrames, "dump-frames", false, "Print every new frame as text in headless mode.")
	flag.Float64Var(&sim.DistanceCM, "sim-distance", 100, "Simulated target distance in cm.")
	flag.Float64Var(&sim.SweepCM, "sim-sweep", 0, "Move the simulated target back and forth by up to this many cm.")
	flag.IntVar(&sim.DropEvery, "sim-drop-every", 0, "Make every Nth echo go missing (0 = never).")
	flag.DurationVar(&sim.Latency, "sim-latency", 0, "Delay between the trigger pulse and the echo.")
	flag.Parse()

	hcfg := hal.HostConfig{TriggerPin: cfg.TriggerPin, EchoPin: cfg.EchoPin, Sim: sim}
	run := func(ctx context.Context, h hal.HAL) error {
		a, err := app.New(h, cfg)
		if err != nil {
			app.Fatal(h, err)
			return err
		}
		return a.Run(ctx)
	}

	var err error
	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, hcfg, headless, run)
	} else {
		err = hal.RunWindow(hcfg, run)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
