// Package rgb565 provides the 16-bit RGB565 color format used by the RA8875
// display memory.
//
// Each pixel packs 5 bits of red, 6 bits of green and 5 bits of blue into a
// single uint16. This is the native representation streamed to the display and
// the target format for color-table reduction when decoding indexed images.
package rgb565

import "image/color"

// Pixel is a packed RGB565 color value.
type Pixel uint16

// New packs 8-bit-per-channel RGB into a Pixel.
//
// The reduction keeps the top 5/6/5 bits of each channel:
// ((r<<8)&0xF800) | ((g<<3)&0x07E0) | (b>>3).
func New(r, g, b uint8) Pixel {
	return Pixel((uint16(r)<<8)&0xF800 | (uint16(g)<<3)&0x07E0 | uint16(b)>>3)
}

// RGBA converts the Pixel to standard 16-bit-per-channel RGBA.
// Channel values are expanded by bit replication so that full-scale 5/6-bit
// values map to 0xFFFF.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	r = uint32(p&0xF800) >> 11
	g = uint32(p&0x07E0) >> 5
	b = uint32(p & 0x001F)
	r = r<<11 | r<<6 | r<<1 | r>>4
	g = g<<10 | g<<4 | g>>2
	b = b<<11 | b<<6 | b<<1 | b>>4
	return r, g, b, 0xFFFF
}

// Model converts colors to Pixel.
var Model = color.ModelFunc(toPixel)

func toPixel(c color.Color) color.Color {
	if p, ok := c.(Pixel); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return New(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
