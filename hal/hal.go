package hal

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// Panel is a buffered monochrome display.
//
// Drawing goes to a back buffer; Display pushes the whole buffer to the glass in one
// transfer, so a frame is either fully visible or not at all.
type Panel interface {
	drivers.Displayer
	ClearBuffer()
}

// HAL provides the only contact point between the firmware and the outside world.
type HAL interface {
	Logger() Logger
	Clock() Clock
	GPIO() GPIO
	Panel() Panel
}
