//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ssd1306"
)

const rp2PinCount = 30

type tinyGoHAL struct {
	logger *uartLogger
	clock  Clock
	gpio   GPIO
	panel  *oledPanel
}

// New returns a Pico (RP2040/RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// OLED: SSD1306 128x32 on I2C1, GP14 (SDA) / GP15 (SCL), 400kHz.
//
// The logger is usable even when an error is returned.
func New() (HAL, error) {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	h := &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		clock:  NewMonotonicClock(),
		gpio:   newMachineGPIO(rp2PinCount),
	}

	panel, err := newOLEDPanel()
	if err != nil {
		return h, err
	}
	h.panel = panel
	return h, nil
}

func (h *tinyGoHAL) Logger() Logger { return h.logger }
func (h *tinyGoHAL) Clock() Clock   { return h.clock }
func (h *tinyGoHAL) GPIO() GPIO     { return h.gpio }

func (h *tinyGoHAL) Panel() Panel {
	if h.panel == nil {
		return nil
	}
	return h.panel
}

// oledPanel owns the SSD1306; its Device already keeps a back buffer and Display
// pushes it over I2C in one transfer.
type oledPanel struct {
	dev ssd1306.Device
}

func newOLEDPanel() (*oledPanel, error) {
	err := machine.I2C1.Configure(machine.I2CConfig{
		SDA:       machine.GP14,
		SCL:       machine.GP15,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, fmt.Errorf("oled: i2c1: %w", err)
	}

	p := &oledPanel{dev: ssd1306.NewI2C(machine.I2C1)}
	p.dev.Configure(ssd1306.Config{
		Width:    128,
		Height:   32,
		Address:  ssd1306.Address_128_32,
		VccState: ssd1306.SWITCHCAPVCC,
	})
	p.dev.ClearBuffer()
	if err := p.dev.Display(); err != nil {
		return nil, fmt.Errorf("oled: first flush: %w", err)
	}
	return p, nil
}

func (p *oledPanel) Size() (x, y int16)                { return p.dev.Size() }
func (p *oledPanel) SetPixel(x, y int16, c color.RGBA) { p.dev.SetPixel(x, y, c) }
func (p *oledPanel) Display() error                    { return p.dev.Display() }
func (p *oledPanel) ClearBuffer()                      { p.dev.ClearBuffer() }
