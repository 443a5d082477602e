package screen

import (
	"image/color"
	"math"
	"strings"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// recordingPanel is a double-buffered monochrome panel that logs the order of
// clears, pixel writes and flushes.
type recordingPanel struct {
	mu    sync.Mutex
	w, h  int16
	back  []bool
	front []bool
	ops   []byte // 'c' clear, 'p' pixel run, 'd' display
}

func newRecordingPanel() *recordingPanel {
	return &recordingPanel{w: 128, h: 32, back: make([]bool, 128*32), front: make([]bool, 128*32)}
}

func (p *recordingPanel) Size() (x, y int16) { return p.w, p.h }

func (p *recordingPanel) SetPixel(x, y int16, c color.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.ops); n == 0 || p.ops[n-1] != 'p' {
		p.ops = append(p.ops, 'p')
	}
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return
	}
	p.back[int(y)*int(p.w)+int(x)] = c.R|c.G|c.B != 0
}

func (p *recordingPanel) ClearBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, 'c')
	for i := range p.back {
		p.back[i] = false
	}
}

func (p *recordingPanel) Display() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, 'd')
	copy(p.front, p.back)
	return nil
}

func (p *recordingPanel) lit(x, y int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.front[y*int(p.w)+x]
}

func (p *recordingPanel) rowCount(y int) int {
	n := 0
	for x := 0; x < int(p.w); x++ {
		if p.lit(x, y) {
			n++
		}
	}
	return n
}

func (p *recordingPanel) litAbove(y int) int {
	n := 0
	for row := 0; row < y; row++ {
		n += p.rowCount(row)
	}
	return n
}

func (p *recordingPanel) opString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.ops)
}

func TestBarLength(t *testing.T) {
	tests := []struct {
		cm, scale float64
		want      int16
	}{
		{0.994, 1, 1},
		{0, 1, 0},
		{-3, 1, 0},
		{10, 0.32, 4},
		{127.2, 1, 128},
		{399.9, 1, 128},
		{450, 1, 128},
		{math.NaN(), 1, 0},
		{50, 0, 0},
	}
	for _, tt := range tests {
		qt.Check(t, BarLength(tt.cm, tt.scale, 128), qt.Equals, tt.want, qt.Commentf("cm=%v scale=%v", tt.cm, tt.scale))
	}
}

func TestReadingShortBar(t *testing.T) {
	c := qt.New(t)

	p := newRecordingPanel()
	r := New(p, 1)
	c.Assert(r.Reading(0.994), qt.IsNil)

	c.Assert(p.lit(0, barY), qt.IsTrue)
	c.Assert(p.rowCount(barY), qt.Equals, 1)
	c.Assert(p.litAbove(barY) > 0, qt.IsTrue)
	c.Assert(p.opString(), qt.Equals, "cpd")
}

func TestReadingBarClampedToWidth(t *testing.T) {
	p := newRecordingPanel()
	r := New(p, 1)
	qt.Assert(t, r.Reading(399.9), qt.IsNil)
	qt.Assert(t, p.rowCount(barY), qt.Equals, 128)
}

func TestEachFrameReplacesThePrevious(t *testing.T) {
	c := qt.New(t)

	p := newRecordingPanel()
	r := New(p, 1)
	c.Assert(r.Reading(80), qt.IsNil)
	c.Assert(p.rowCount(barY), qt.Equals, 80)

	c.Assert(r.SensorTimeout(), qt.IsNil)
	c.Assert(p.rowCount(barY), qt.Equals, 0)
	c.Assert(p.litAbove(barY) > 0, qt.IsTrue)
	c.Assert(p.opString(), qt.Equals, "cpdcpd")
}

func TestFramesDoNotInterleave(t *testing.T) {
	p := newRecordingPanel()
	r := New(p, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				switch (i + j) % 3 {
				case 0:
					r.Reading(float64(j))
				case 1:
					r.OutOfRange()
				default:
					r.SensorTimeout()
				}
			}
		}(i)
	}
	wg.Wait()

	ops := p.opString()
	qt.Assert(t, strings.Count(ops, "d"), qt.Equals, 100)
	// Reading(0) draws text only, so every frame is exactly clear, pixels, display.
	qt.Assert(t, strings.ReplaceAll(ops, "cpd", ""), qt.Equals, "")
}

func TestWrapFitsWidth(t *testing.T) {
	c := qt.New(t)

	font := tinyfont.Fonter(&proggy.TinySZ8pt7b)
	for _, s := range []string{TextOutOfRange, TextSensorTimeout, "app: gpio: pin 5: out of range (have 4)"} {
		parts := wrap(font, s, 128)
		c.Assert(len(parts) > 0, qt.IsTrue)
		for _, part := range parts {
			_, w := tinyfont.LineWidth(font, part)
			c.Assert(int(w) <= 128, qt.IsTrue, qt.Commentf("%q is %dpx", part, w))
		}
		c.Assert(strings.Join(parts, " "), qt.Equals, s)
	}
}

func TestWrapSplitsLongWord(t *testing.T) {
	font := tinyfont.Fonter(&proggy.TinySZ8pt7b)
	word := strings.Repeat("W", 60)
	parts := wrap(font, word, 128)
	qt.Assert(t, len(parts) > 1, qt.IsTrue)
	qt.Assert(t, strings.Join(parts, ""), qt.Equals, word)
}

func TestBootConsole(t *testing.T) {
	c := qt.New(t)

	p := newRecordingPanel()
	r := New(p, 1)
	c.Assert(r.Boot("sonar dev"), qt.IsNil)
	c.Assert(p.litAbove(consoleFontHeight) > 0, qt.IsTrue)
	c.Assert(strings.HasSuffix(p.opString(), "d"), qt.IsTrue)

	// The next frame starts from a clean buffer.
	c.Assert(r.Reading(3), qt.IsNil)
	c.Assert(p.rowCount(barY), qt.Equals, 3)
}

func TestFitRows(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	qt.Assert(t, fitRows(lines, 3), qt.DeepEquals, []string{"a", "b", "c"})
	qt.Assert(t, fitRows(lines, 8), qt.DeepEquals, lines)
	qt.Assert(t, fitRows(lines, 0), qt.DeepEquals, []string{"a"})
}

func TestBootConsoleKeepsBannerOnTop(t *testing.T) {
	c := qt.New(t)

	p := newRecordingPanel()
	r := New(p, 1)
	c.Assert(r.Boot("one"), qt.IsNil)
	top := make([]bool, consoleFontHeight*int(p.w))
	copy(top, p.front)

	// Extra lines past the last row must not wrap onto the banner.
	c.Assert(r.Boot("one", "two", "three", "four", "five"), qt.IsNil)
	c.Assert(p.front[:len(top)], qt.DeepEquals, top)
}
