package screen

import (
	"image/color"

	"sonar/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"
)

const (
	consoleFontHeight = 10
	consoleFontOffset = 8
)

// Console is a scrolling text terminal on the panel, used before the pipeline
// runs and for fatal start-up errors.
type Console struct {
	term *tinyterm.Terminal
	disp termDisplay
	font *tinyfont.Font
}

func newConsole(panel hal.Panel, font *tinyfont.Font) *Console {
	d := termDisplay{panel}
	return &Console{term: tinyterm.NewTerminal(d), disp: d, font: font}
}

// show replaces the console contents with lines and flushes one frame. Lines
// past the last row are dropped so the terminal never scrolls.
func (c *Console) show(lines []string) error {
	c.disp.ClearBuffer()
	c.term.Configure(&tinyterm.Config{
		Font:       c.font,
		FontHeight: consoleFontHeight,
		FontOffset: consoleFontOffset,
	})
	_, h := c.disp.Size()
	for i, line := range fitRows(lines, h/consoleFontHeight) {
		if i > 0 {
			c.term.Write([]byte("\n"))
		}
		c.term.Write([]byte(line))
	}
	return c.disp.Display()
}

// termDisplay gives a plain panel the fill and scroll methods tinyterm expects.
// The panel has no hardware scroll or rotation.
type termDisplay struct {
	hal.Panel
}

func (d termDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	return tinydraw.FilledRectangle(d.Panel, x, y, width, height, c)
}

func (d termDisplay) SetScroll(int16) {}

func (d termDisplay) SetRotation(drivers.Rotation) error { return nil }

// fitRows keeps the first rows lines.
func fitRows(lines []string, rows int16) []string {
	if rows < 1 {
		rows = 1
	}
	if len(lines) > int(rows) {
		return lines[:rows]
	}
	return lines
}
