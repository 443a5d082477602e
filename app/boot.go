package app

import (
	"fmt"
	"log/slog"

	"sonar/internal/buildinfo"
	"sonar/sonar/services/screen"
)

// boot tracks start-up progress on the log and, when there is a panel, on the
// boot console. The step name prefixes any start-up error.
type boot struct {
	log    *slog.Logger
	screen *screen.Renderer
	step   string
}

func (b *boot) enter(step string) {
	b.step = step
	b.log.Info("boot", "step", step)
	if b.screen != nil {
		if err := b.screen.Boot("sonar "+buildinfo.Short(), step); err != nil {
			b.log.Debug("boot screen update failed", "step", step, "err", err)
		}
	}
}

func (b *boot) fail(err error) error {
	return fmt.Errorf("app: %s: %w", b.step, err)
}
