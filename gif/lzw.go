package gif

// GIF89a LZW: codes are packed LSB-first at a variable width, starting one bit
// wider than the minimum code size from the image block. The dictionary is an
// arena of entries chained by integer back-references; an entry's expansion is
// recovered by walking the chain backward and writing bytes at decreasing
// offsets, which yields forward byte order without a stack.

type dictEntry struct {
	b    byte
	prev int
	len  int
}

// maxCodeWidth is the GIF89a mandated cap; codes never exceed 12 bits.
const maxCodeWidth = 12

// initDict fills the first 1<<codeWidth entries with their identity mapping
// and returns the next free dictionary slot, skipping the clear and stop
// codes.
func initDict(dict []dictEntry, codeWidth int) int {
	n := 1 << codeWidth
	for i := 0; i < n; i++ {
		dict[i] = dictEntry{b: byte(i), prev: -1, len: 1}
	}
	return n + 2
}

// decompress expands LZW-compressed image data into out. The caller sizes out
// to the pixel count of the image block; a stream that would produce more
// bytes than fit is corrupt.
func decompress(codeWidth int, input, out []byte) error {
	if codeWidth < 2 || codeWidth > 8 {
		return FormatError("bad LZW minimum code size")
	}

	clearCode := 1 << codeWidth
	stopCode := clearCode + 1
	resetCodeWidth := codeWidth

	dict := make([]dictEntry, 1<<(codeWidth+1))
	dictInd := initDict(dict, codeWidth)

	// The encoder should emit a clear code first, but the format does not
	// require it, so the dictionary starts pre-initialized.
	prev := -1
	pos := 0
	mask := byte(0x01)
	outPos := 0

	for pos < len(input) {
		code := 0
		for i := 0; i < codeWidth+1; i++ {
			if pos >= len(input) {
				return FormatError("truncated LZW code stream")
			}
			if input[pos]&mask != 0 {
				code |= 1 << i
			}
			mask <<= 1
			if mask == 0 {
				mask = 0x01
				pos++
			}
		}

		switch {
		case code == clearCode:
			codeWidth = resetCodeWidth
			dict = dict[:1<<(codeWidth+1)]
			dictInd = initDict(dict, codeWidth)
			prev = -1
			continue
		case code == stopCode:
			// A stop code mid-stream signals a corrupt trailer; at most one
			// partially consumed byte may remain.
			if len(input)-pos > 1 {
				return FormatError("data after LZW stop code")
			}
			return nil
		}

		// Once the dictionary hits the 12-bit cap it is frozen; the encoder
		// may keep emitting codes from the full table until it clears.
		if prev > -1 && dictInd < 1<<maxCodeWidth {
			if code > dictInd {
				return FormatError("LZW code beyond dictionary")
			}
			// The new entry's first byte is the first byte of the current
			// code's expansion. When code == dictInd (the KwKwK case) the
			// current code is the entry being defined, so the first byte is
			// that of the previous code's expansion instead.
			root := code
			if code == dictInd {
				root = prev
			}
			for dict[root].prev != -1 {
				root = dict[root].prev
			}
			dict[dictInd] = dictEntry{b: dict[root].b, prev: prev, len: dict[prev].len + 1}
			dictInd++
			if dictInd == 1<<(codeWidth+1) && codeWidth < maxCodeWidth-1 {
				codeWidth++
				grown := make([]dictEntry, 1<<(codeWidth+1))
				copy(grown, dict)
				dict = grown
			}
		}
		prev = code

		if code >= dictInd {
			return FormatError("LZW code references missing entry")
		}
		matchLen := dict[code].len
		if outPos+matchLen > len(out) {
			return FormatError("LZW output exceeds image size")
		}
		for code != -1 {
			out[outPos+dict[code].len-1] = dict[code].b
			if dict[code].prev == code {
				return FormatError("self-referential LZW chain")
			}
			code = dict[code].prev
		}
		outPos += matchLen
	}
	return nil
}
