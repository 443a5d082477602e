// Package proto defines the values that travel between the interrupt handler and
// the measurement tasks.
package proto

import (
	"time"

	"sonar/hal"
)

const (
	// SpeedOfSoundCMPerUS is the speed of sound in dry air at about 20°C.
	SpeedOfSoundCMPerUS = 0.0343

	// MaxRangeCM is the HC-SR04's documented maximum reliable range.
	MaxRangeCM = 400.0
)

// Polarity is the direction of an echo line transition.
type Polarity uint8

const (
	Rising Polarity = iota + 1
	Falling
)

func (p Polarity) String() string {
	switch p {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "unknown"
	}
}

// EdgeEvent is one timestamped transition of the echo line.
type EdgeEvent struct {
	Polarity Polarity
	At       hal.Instant
}

// DistanceSample is the result of one matched rising→falling pair.
type DistanceSample struct {
	CM      float64
	Elapsed time.Duration
	// Cycle is the trigger cycle that was current when the echo started.
	Cycle uint32
}

// DistanceCM converts a round-trip time of flight to a one-way distance.
func DistanceCM(elapsed time.Duration) float64 {
	us := float64(elapsed) / float64(time.Microsecond)
	return us * SpeedOfSoundCMPerUS / 2
}
