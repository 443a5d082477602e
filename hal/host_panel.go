//go:build !baremetal

package hal

import (
	"image/color"
	"strings"
	"sync"
)

// hostPanel is a double-buffered monochrome panel. Display copies the back buffer
// to the front buffer, which is what the window and headless dumps read.
type hostPanel struct {
	mu     sync.Mutex
	width  int
	height int
	back   []bool
	front  []bool
	frames uint64
}

func newHostPanel(width, height int) *hostPanel {
	return &hostPanel{
		width:  width,
		height: height,
		back:   make([]bool, width*height),
		front:  make([]bool, width*height),
	}
}

func (p *hostPanel) Size() (x, y int16) { return int16(p.width), int16(p.height) }

func (p *hostPanel) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= p.width || iy < 0 || iy >= p.height {
		return
	}
	p.mu.Lock()
	p.back[iy*p.width+ix] = c.R|c.G|c.B != 0
	p.mu.Unlock()
}

func (p *hostPanel) ClearBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.back {
		p.back[i] = false
	}
}

func (p *hostPanel) Display() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.front, p.back)
	p.frames++
	return nil
}

// snapshot copies the visible frame into dst and returns the frame counter.
func (p *hostPanel) snapshot(dst []bool) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(dst, p.front)
	return p.frames
}

// ascii renders the visible frame, two pixel rows per text line.
func (p *hostPanel) ascii() string {
	px := make([]bool, p.width*p.height)
	p.snapshot(px)

	var sb strings.Builder
	for y := 0; y < p.height; y += 2 {
		for x := 0; x < p.width; x++ {
			top := px[y*p.width+x]
			bottom := y+1 < p.height && px[(y+1)*p.width+x]
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
