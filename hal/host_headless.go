//go:build !baremetal

package hal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is how often the panel is polled for new frames.
	Hz int
	// Duration stops the run after the given time (0 = run until ctx is done).
	Duration time.Duration
	// DumpFrames writes every new frame to the logger as text art.
	DumpFrames bool
}

// RunHeadless runs the firmware without opening a window.
func RunHeadless(ctx context.Context, cfg HostConfig, hcfg HeadlessConfig, run func(context.Context, HAL) error) error {
	if hcfg.Hz <= 0 {
		hcfg.Hz = 30
	}
	d := time.Second / time.Duration(hcfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", hcfg.Hz)
	}

	h, err := newHostHAL(cfg)
	if err != nil {
		return err
	}

	if hcfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hcfg.Duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, h) }()

	t := time.NewTicker(d)
	defer t.Stop()

	var seen uint64
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.DeadlineExceeded) && hcfg.Duration > 0 {
				return nil
			}
			return err
		case <-t.C:
			if !hcfg.DumpFrames {
				continue
			}
			h.panel.mu.Lock()
			frames := h.panel.frames
			h.panel.mu.Unlock()
			if frames == seen {
				continue
			}
			seen = frames
			for _, line := range strings.Split(strings.TrimRight(h.panel.ascii(), "\n"), "\n") {
				h.logger.WriteLineString("|" + line + "|")
			}
		}
	}
}
