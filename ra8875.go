// Package ra8875 controls a RA8875 display controller via SPI.
//
// The RA8875 drives dot-matrix TFT panels up to 800x480 with 16-bit RGB565
// color and integrates a 10-bit resistive touch-panel ADC.
//
// See the examples for how to use this package.
package ra8875

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/jakesjacob/ra8875/gif"
	"github.com/jakesjacob/ra8875/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Opts is the configuration for the RA8875 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 800, must be ≤800)
	H int // Height (default: 480, must be ≤480)

	// Optional hardware reset pin
	RST gpio.PinIO // Reset pin (optional, nil if not used)
}

// Dev is the device handle for the RA8875 display controller.
type Dev struct {
	// Communication
	c   conn.Conn  // SPI connection
	rst gpio.PinIO // Reset pin (optional)

	// Display geometry
	rect image.Rectangle

	// State
	halted bool
}

// NewSPI creates a new RA8875 device connected via SPI.
//
// The SPI port is configured for 10MHz, Mode0, 8-bit transfers. The RA8875
// multiplexes command and data cycles over the bus with a one-byte prefix, so
// no separate D/C pin is needed.
//
// opts can be nil to use defaults (800x480 display).
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{W: 800, H: 480}
	}

	if opts.W <= 0 || opts.W > 800 {
		return nil, errors.New("ra8875: width must be between 1 and 800")
	}
	if opts.H <= 0 || opts.H > 480 {
		return nil, errors.New("ra8875: height must be between 1 and 480")
	}

	c, err := p.Connect(10*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	d := &Dev{
		c:    c,
		rst:  opts.RST,
		rect: image.Rect(0, 0, opts.W, opts.H),
	}

	if d.rst != nil {
		if err := d.reset(); err != nil {
			return nil, err
		}
	}
	if err := d.SetWindow(0, 0, opts.W, opts.H); err != nil {
		return nil, err
	}
	return d, nil
}

// reset performs the hardware reset sequence on the RST pin.
func (d *Dev) reset() error {
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("ra8875: failed to pull RST low: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("ra8875: failed to pull RST high: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// writeReg writes one value to a register: a command cycle selecting the
// register followed by a data write cycle.
func (d *Dev) writeReg(reg, val byte) error {
	if err := d.c.Tx([]byte{cycleCmdWrite, reg}, nil); err != nil {
		return err
	}
	return d.c.Tx([]byte{cycleDataWrite, val}, nil)
}

// readReg reads one register value.
func (d *Dev) readReg(reg byte) (byte, error) {
	if err := d.c.Tx([]byte{cycleCmdWrite, reg}, nil); err != nil {
		return 0, err
	}
	var r [2]byte
	if err := d.c.Tx([]byte{cycleDataRead, 0x00}, r[:]); err != nil {
		return 0, err
	}
	return r[1], nil
}

// writeReg16 writes a 16-bit value to a low/high register pair.
func (d *Dev) writeReg16(regLow byte, val int) error {
	if err := d.writeReg(regLow, byte(val)); err != nil {
		return err
	}
	return d.writeReg(regLow+1, byte(val>>8))
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Size returns the display dimensions in pixels.
func (d *Dev) Size() (w, h int) {
	return d.rect.Dx(), d.rect.Dy()
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ra8875.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// SetWindow sets the active window: the rectangle that scopes subsequent
// memory writes. Pixel streams wrap within it.
func (d *Dev) SetWindow(x, y, w, h int) error {
	if d.halted {
		return errors.New("ra8875: halted")
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > d.rect.Dx() || y+h > d.rect.Dy() {
		return errors.New("ra8875: window outside display area")
	}
	if err := d.writeReg16(regHSAW0, x); err != nil {
		return err
	}
	if err := d.writeReg16(regVSAW0, y); err != nil {
		return err
	}
	if err := d.writeReg16(regHEAW0, x+w-1); err != nil {
		return err
	}
	return d.writeReg16(regVEAW0, y+h-1)
}

// setCursor positions the memory write cursor.
func (d *Dev) setCursor(x, y int) error {
	if err := d.writeReg16(regCURH0, x); err != nil {
		return err
	}
	return d.writeReg16(regCURV0, y)
}

// WritePixels streams w*h row-major RGB565 pixels into the rectangle at
// (x, y). The active window is set to the rectangle for the duration of the
// write and left in place afterwards.
func (d *Dev) WritePixels(x, y, w, h int, pix []rgb565.Pixel) error {
	if d.halted {
		return errors.New("ra8875: halted")
	}
	if len(pix) != w*h {
		return errors.New("ra8875: pixel buffer does not match rectangle size")
	}
	if err := d.SetWindow(x, y, w, h); err != nil {
		return err
	}
	if err := d.setCursor(x, y); err != nil {
		return err
	}
	// Select memory write mode, then stream the data cycle.
	if err := d.c.Tx([]byte{cycleCmdWrite, regMRWC}, nil); err != nil {
		return err
	}
	buf := make([]byte, 1, 1+2*len(pix))
	buf[0] = cycleDataWrite
	for _, p := range pix {
		buf = append(buf, byte(p>>8), byte(p))
	}
	return d.c.Tx(buf, nil)
}

// Halt puts the display to sleep with the output disabled. Further commands
// fail until the device is re-initialized.
func (d *Dev) Halt() error {
	if err := d.writeReg(regPWRR, pwrrSleep); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// EnableTouch configures the resistive touch-panel ADC: default sample time
// and clock divider, auto mode with debounce, and the touch interrupt.
func (d *Dev) EnableTouch() error {
	if d.halted {
		return errors.New("ra8875: halted")
	}
	if err := d.writeReg(regTPCR0, tpEnable|tpAdcSampleDefault|tpAdcClkDivDefault); err != nil {
		return err
	}
	if err := d.writeReg(regTPCR1, tpModeAuto|tpDebounceOn); err != nil {
		return err
	}
	intc, err := d.readReg(regINTC1)
	if err != nil {
		return err
	}
	if err := d.writeReg(regINTC1, intc|intTP); err != nil {
		return err
	}
	// Clear any stale touch interrupt.
	return d.writeReg(regINTC2, intTP)
}

// Pending reports whether a touch interrupt is pending, i.e. an unread sample
// pair is waiting in the ADC registers. It implements touch.Sampler.
func (d *Dev) Pending() (bool, error) {
	flags, err := d.readReg(regINTC2)
	if err != nil {
		return false, err
	}
	return flags&intTP != 0, nil
}

// Sample reads one raw 10-bit touch sample pair and clears the touch
// interrupt flag. It implements touch.Sampler.
//
// Each axis is composed of 8 high bits from TPXH/TPYH and 2 low bits packed
// into TPXYL.
func (d *Dev) Sample() (x, y int, err error) {
	xh, err := d.readReg(regTPXH)
	if err != nil {
		return 0, 0, err
	}
	yh, err := d.readReg(regTPYH)
	if err != nil {
		return 0, 0, err
	}
	xyl, err := d.readReg(regTPXYL)
	if err != nil {
		return 0, 0, err
	}
	x = int(xh)<<2 | int(xyl&0x3)
	y = int(yh)<<2 | int(xyl&0xC)>>2
	if err := d.writeReg(regINTC2, intTP); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// RenderGIF decodes a GIF89a stream from r and renders it at (x, y).
func (d *Dev) RenderGIF(x, y int, r io.Reader) error {
	return gif.NewDecoder(r).Render(d, x, y)
}
