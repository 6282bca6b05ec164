// Package gif decodes GIF89a image streams onto an RGB565 pixel sink.
//
// The decoder targets the RA8875 use case: indexed pixels are mapped through
// the global or local color table, reduced to the display's native RGB565
// depth, and streamed block by block to a rectangular pixel sink. Animated
// streams are flattened in file order; the interlace flag is read but not
// honored.
package gif

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jakesjacob/ra8875/rgb565"
)

// Block and extension tags from the GIF89a specification.
const (
	extensionIntroducer = 0x21
	imageDescriptorTag  = 0x2C
	trailerTag          = 0x3B

	graphicControlExtension = 0xF9
	applicationExtension    = 0xFF
	commentExtension        = 0xFE
	plainTextExtension      = 0x01
)

// Fixed extension body sizes, not counting the trailing data sub-blocks.
const (
	graphicControlExtensionSize = 4
	applicationExtensionSize    = 11
	plainTextExtensionSize      = 12
)

// maxImagePixels bounds per-block allocations. The RA8875 tops out at 800x480;
// anything an order of magnitude past that is not a stream this driver should
// buffer.
const maxImagePixels = 4 << 20

// FormatError reports a malformed or unsupported GIF stream.
type FormatError string

func (e FormatError) Error() string { return "gif: " + string(e) }

// ErrTooLarge is returned when an image block's dimensions exceed what the
// decoder is willing to allocate. It is a resource limit, not a format error.
var ErrTooLarge = errors.New("gif: image too large")

// ScreenDescriptor is the GIF logical screen descriptor.
type ScreenDescriptor struct {
	Width            uint16
	Height           uint16
	Fields           byte
	BackgroundIndex  byte
	PixelAspectRatio byte
}

// HasColorTable reports whether a global color table follows the descriptor.
func (s ScreenDescriptor) HasColorTable() bool { return s.Fields&0x80 != 0 }

// ColorTableSize returns the number of entries in the global color table.
func (s ScreenDescriptor) ColorTableSize() int { return 1 << ((s.Fields & 0x07) + 1) }

// ColorResolution returns the source color depth in bits per primary.
func (s ScreenDescriptor) ColorResolution() int { return int((s.Fields&0x70)>>4) + 1 }

// imageDescriptor is one image block's placement and color table info.
type imageDescriptor struct {
	Left   uint16
	Top    uint16
	Width  uint16
	Height uint16
	Fields byte
}

func (d imageDescriptor) hasColorTable() bool { return d.Fields&0x80 != 0 }
func (d imageDescriptor) colorTableSize() int { return 1 << ((d.Fields & 0x07) + 1) }

// Target receives decoded image fragments. It is typically an *ra8875.Dev but
// anything with a rectangular RGB565 write works, which keeps the decoder
// testable without hardware.
type Target interface {
	// SetWindow restricts pixel writes to the given rectangle.
	SetWindow(x, y, w, h int) error
	// WritePixels streams w*h row-major pixels into the rectangle at (x, y).
	WritePixels(x, y, w, h int, pix []rgb565.Pixel) error
}

// Decoder reads a GIF89a stream from a sequential byte source.
//
// A Decoder is single-use: Render consumes the source. Screen may be called
// before or after Render; the descriptor is cached once parsed so metric
// queries do not re-read the source.
type Decoder struct {
	r           io.Reader
	screen      ScreenDescriptor
	screenValid bool
	globalTable []rgb565.Pixel
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// readFull reads exactly len(buf) bytes, treating any short read at a
// fixed-size field as a format error.
func (d *Decoder) readFull(buf []byte) error {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return FormatError("truncated stream")
	}
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	var buf [1]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Screen parses the header and logical screen descriptor if it has not been
// parsed yet and returns the descriptor.
func (d *Decoder) Screen() (ScreenDescriptor, error) {
	if err := d.parseHeader(); err != nil {
		return ScreenDescriptor{}, err
	}
	return d.screen, nil
}

// parseHeader verifies the GIF89a signature and reads the screen descriptor.
// GIF87a streams are rejected.
func (d *Decoder) parseHeader() error {
	if d.screenValid {
		return nil
	}
	var sig [6]byte
	if err := d.readFull(sig[:]); err != nil {
		return err
	}
	if string(sig[:]) != "GIF89a" {
		return FormatError("not a GIF89a stream")
	}
	var desc [7]byte
	if err := d.readFull(desc[:]); err != nil {
		return err
	}
	d.screen = ScreenDescriptor{
		Width:            binary.LittleEndian.Uint16(desc[0:2]),
		Height:           binary.LittleEndian.Uint16(desc[2:4]),
		Fields:           desc[4],
		BackgroundIndex:  desc[5],
		PixelAspectRatio: desc[6],
	}
	d.screenValid = true
	return nil
}

// readColorTable reads size RGB triples and reduces each to RGB565.
func (d *Decoder) readColorTable(size int) ([]rgb565.Pixel, error) {
	raw := make([]byte, 3*size)
	if err := d.readFull(raw); err != nil {
		return nil, err
	}
	table := make([]rgb565.Pixel, size)
	for i := range table {
		table[i] = rgb565.New(raw[3*i], raw[3*i+1], raw[3*i+2])
	}
	return table, nil
}

// readSubBlocks drains a chain of data sub-blocks into one contiguous buffer.
// Each sub-block is prefixed by a length byte; a zero length terminates the
// chain. The returned buffer may be empty.
func (d *Decoder) readSubBlocks() ([]byte, error) {
	var data []byte
	var block [255]byte
	for {
		size, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return data, nil
		}
		if err := d.readFull(block[:size]); err != nil {
			return nil, err
		}
		data = append(data, block[:size]...)
	}
}

// Render decodes the stream and writes every image block to t, offset by
// (x, y) in display space. A decode failure aborts the image; blocks streamed
// before the failure remain on the target.
func (d *Decoder) Render(t Target, x, y int) error {
	if err := d.parseHeader(); err != nil {
		return err
	}
	if d.screen.HasColorTable() {
		table, err := d.readColorTable(d.screen.ColorTableSize())
		if err != nil {
			return err
		}
		d.globalTable = table
	}

	for {
		tag, err := d.readByte()
		if err != nil {
			return err
		}
		switch tag {
		case imageDescriptorTag:
			if err := d.renderImageBlock(t, x, y); err != nil {
				return err
			}
		case extensionIntroducer:
			if err := d.skipExtension(); err != nil {
				return err
			}
		case trailerTag:
			return nil
		default:
			return FormatError(fmt.Sprintf("unknown block tag 0x%02X", tag))
		}
	}
}

// renderImageBlock handles one image descriptor: optional local color table,
// LZW data, color mapping and the pixel sink write.
func (d *Decoder) renderImageBlock(t Target, x, y int) error {
	var raw [9]byte
	if err := d.readFull(raw[:]); err != nil {
		return err
	}
	desc := imageDescriptor{
		Left:   binary.LittleEndian.Uint16(raw[0:2]),
		Top:    binary.LittleEndian.Uint16(raw[2:4]),
		Width:  binary.LittleEndian.Uint16(raw[4:6]),
		Height: binary.LittleEndian.Uint16(raw[6:8]),
		Fields: raw[8],
	}

	// The local table, when present, overrides the global one for this block
	// only. It is dropped as soon as the block's pixels are emitted.
	table := d.globalTable
	if desc.hasColorTable() {
		local, err := d.readColorTable(desc.colorTableSize())
		if err != nil {
			return err
		}
		table = local
	}

	codeSize, err := d.readByte()
	if err != nil {
		return err
	}
	compressed, err := d.readSubBlocks()
	if err != nil {
		return err
	}

	w, h := int(desc.Width), int(desc.Height)
	if w*h > maxImagePixels {
		return ErrTooLarge
	}
	indexes := make([]byte, w*h)
	if err := decompress(int(codeSize), compressed, indexes); err != nil {
		return err
	}
	if len(table) == 0 {
		return FormatError("image block without color table")
	}

	pix := make([]rgb565.Pixel, len(indexes))
	for i, ind := range indexes {
		if int(ind) >= len(table) {
			return FormatError("color index out of table range")
		}
		pix[i] = table[ind]
	}

	left, top := x+int(desc.Left), y+int(desc.Top)
	if err := t.SetWindow(left, top, w, h); err != nil {
		return fmt.Errorf("gif: pixel sink window: %w", err)
	}
	if err := t.WritePixels(left, top, w, h, pix); err != nil {
		return fmt.Errorf("gif: pixel sink write: %w", err)
	}
	return nil
}

// skipExtension consumes one extension block. Recognized extension codes have
// their fixed-size body read; unrecognized codes are skipped without touching
// the body, whose size is unknown. Either way the trailing data sub-blocks
// are drained, since every extension carries them, even if only the zero
// terminator.
func (d *Decoder) skipExtension() error {
	var hdr [2]byte
	if err := d.readFull(hdr[:]); err != nil {
		return err
	}
	code := hdr[0]

	var fixed int
	switch code {
	case graphicControlExtension:
		fixed = graphicControlExtensionSize
	case applicationExtension:
		fixed = applicationExtensionSize
	case plainTextExtension:
		fixed = plainTextExtensionSize
	case commentExtension:
		// All comment data lives in the sub-blocks.
		fixed = 0
	default:
		// Unrecognized extension kind: no fixed body, only sub-blocks.
		fixed = 0
	}
	if fixed > 0 {
		buf := make([]byte, fixed)
		if err := d.readFull(buf); err != nil {
			return err
		}
	}
	_, err := d.readSubBlocks()
	return err
}
