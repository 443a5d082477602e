//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"

	"sonar/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

const windowScale = 4

// RunWindow opens a desktop window that shows the simulated panel and runs the
// firmware until the window closes or run fails.
func RunWindow(cfg HostConfig, run func(context.Context, HAL) error) error {
	h, err := newHostHAL(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := &hostGame{h: h, done: make(chan error, 1)}
	go func() { g.done <- run(ctx, h) }()

	ebiten.SetWindowTitle("sonar (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.panel.width*windowScale, h.panel.height*windowScale)
	ebiten.SetTPS(30)
	err = ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

type hostGame struct {
	h    *hostHAL
	done chan error

	img   *image.RGBA
	fbImg *ebiten.Image
	px    []bool
	seen  uint64
}

func (g *hostGame) Update() error {
	select {
	case err := <-g.done:
		if err == nil {
			return ebiten.Termination
		}
		return err
	default:
		return nil
	}
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	p := g.h.panel
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, p.width, p.height))
		g.px = make([]bool, p.width*p.height)
		g.fbImg = ebiten.NewImage(p.width, p.height)
		g.seen = ^uint64(0)
	}

	if frames := p.snapshot(g.px); frames != g.seen {
		g.seen = frames
		dst := g.img.Pix
		for i, on := range g.px {
			// SSD1306 blue-white on black.
			var r, gg, b uint8
			if on {
				r, gg, b = 0xC8, 0xE6, 0xFF
			}
			j := i * 4
			dst[j+0] = r
			dst[j+1] = gg
			dst[j+2] = b
			dst[j+3] = 0xFF
		}
		g.fbImg.WritePixels(dst)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.panel.width, g.h.panel.height
}
