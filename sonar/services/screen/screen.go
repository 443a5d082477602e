// Package screen draws the ranging results on the panel. Every public method is
// one complete frame: clear the back buffer, draw, flush.
package screen

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"

	"sonar/hal"

	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	TextBooting       = "Iniciando..."
	TextOutOfRange    = "Falha ao medir Distancia"
	TextSensorTimeout = "Sensor Falhou!"
	readingFormat     = "Dist: %.2f cm"
)

const (
	barY       = 16
	lineHeight = 13
)

var on = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Renderer owns the panel. Frames from different callers never interleave.
type Renderer struct {
	mu       sync.Mutex
	panel    hal.Panel
	font     tinyfont.Fonter
	ascent   int16
	barScale float64
	console  *Console
}

// New returns a renderer drawing bars at barScale pixels per cm.
func New(panel hal.Panel, barScale float64) *Renderer {
	face := &proggy.TinySZ8pt7b
	font := tinyfont.Fonter(face)
	ascent := -int16(font.GetGlyph('D').Info().YOffset)
	if ascent <= 0 {
		ascent = 9
	}
	r := &Renderer{
		panel:    panel,
		font:     font,
		ascent:   ascent,
		barScale: barScale,
	}
	r.console = newConsole(panel, face)
	return r
}

// Reading shows the distance and a bar proportional to it.
func (r *Renderer) Reading(cm float64) error {
	return r.frame(func(w int16) {
		tinyfont.WriteLine(r.panel, r.font, 0, r.ascent, fmt.Sprintf(readingFormat, cm), on)
		if n := BarLength(cm, r.barScale, w); n > 0 {
			tinydraw.Line(r.panel, 0, barY, n-1, barY, on)
		}
	})
}

// OutOfRange shows the measurement failure text.
func (r *Renderer) OutOfRange() error { return r.Message(TextOutOfRange) }

// SensorTimeout shows the no-echo text.
func (r *Renderer) SensorTimeout() error { return r.Message(TextSensorTimeout) }

// Message shows lines of text, word-wrapped to the panel width. Lines that do
// not fit vertically are cut.
func (r *Renderer) Message(lines ...string) error {
	return r.frame(func(w int16) {
		_, h := r.panel.Size()
		y := r.ascent
		for _, line := range lines {
			for _, part := range wrap(r.font, line, w) {
				if y > h {
					return
				}
				tinyfont.WriteLine(r.panel, r.font, 0, y, part, on)
				y += lineHeight
			}
		}
	})
}

// Boot shows the start-up console with msg lines under the boot banner.
func (r *Renderer) Boot(lines ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.console.show(append([]string{TextBooting}, lines...))
}

func (r *Renderer) frame(draw func(width int16)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, _ := r.panel.Size()
	r.panel.ClearBuffer()
	draw(w)
	return r.panel.Display()
}

// BarLength is ceil(cm*scale) clamped to [0, width].
func BarLength(cm, scale float64, width int16) int16 {
	v := math.Ceil(cm * scale)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= float64(width):
		return width
	}
	return int16(v)
}

// wrap splits s on spaces so every part fits in width pixels. A single word
// wider than the panel is split by runes.
func wrap(font tinyfont.Fonter, s string, width int16) []string {
	fits := func(s string) bool {
		_, w := tinyfont.LineWidth(font, s)
		return int64(w) <= int64(width)
	}
	if fits(s) {
		return []string{s}
	}
	var (
		out []string
		cur string
	)
	for _, word := range strings.Fields(s) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if fits(next) {
			cur = next
			continue
		}
		if cur != "" {
			out = append(out, cur)
		}
		cur = ""
		for _, rn := range word {
			if c := cur + string(rn); fits(c) || cur == "" {
				cur = c
				continue
			}
			out = append(out, cur)
			cur = string(rn)
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
