// Package ra8875 controls a RA8875 display controller via SPI.
//
// The RA8875 is a TFT panel controller supporting up to 800×480 pixels of
// 16-bit RGB565 color, with an on-chip 10-bit ADC for a 4-wire resistive
// touch panel. This driver covers the pixel-streaming and touch-sampling
// surface of the chip; the gif and touch subpackages build the higher-level
// pipelines on top of it.
//
// # Hardware Connection
//
// Connect the RA8875 board to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VIN         → 5V (board regulators differ, check yours)
//	SCK         → SPI Clock (SCLK)
//	MOSI        → SPI Data Out (MOSI)
//	MISO        → SPI Data In (MISO)
//	CS          → SPI Chip Select
//	RST         → Optional: GPIO for hardware reset
//
// Unlike many panel controllers the RA8875 has no D/C pin: each SPI transfer
// starts with a cycle byte selecting the command or data space.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"os"
//
//		"github.com/jakesjacob/ra8875"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		spiBus, _ := spireg.Open("")
//		dev, _ := ra8875.NewSPI(spiBus, &ra8875.Opts{W: 800, H: 480})
//		defer dev.Halt()
//
//		f, _ := os.Open("logo.gif")
//		defer f.Close()
//		dev.RenderGIF(0, 0, f)
//	}
//
// # GIF Rendering
//
// The gif subpackage decodes GIF89a streams (from-scratch LZW, global and
// local color tables, extension handling) and streams each image block to a
// pixel sink. *Dev implements the sink, so decoding straight to the panel is:
//
//	dev.RenderGIF(x, y, reader)
//
// Decoded colors are reduced to the display's native RGB565 depth via the
// rgb565 subpackage.
//
// # Resistive Touch
//
// *Dev implements touch.Sampler: it exposes the pending-sample flag and the
// raw 10-bit ADC reads. The touch subpackage layers the trimmed-mean filter,
// the touch state machine and 3-point calibration on top:
//
//	dev.EnableTouch()
//	panel := touch.NewPanel(dev)
//	panel.Start(touch.TickInterval)
//	defer panel.Stop()
//
//	matrix, err := panel.Calibrate(ui, 30*time.Second, nil)
//	// persist matrix.MarshalBinary() if desired
//
//	pt, state, err := panel.Read()
//
// Calibration matrices serialize to the same 28-byte layout the C driver
// writes, so existing stored calibration files can be restored with
// Matrix.UnmarshalBinary.
//
// # Datasheet
//
// https://www.raio.com.tw/data_raio/Datasheet/RA8875.pdf
package ra8875
