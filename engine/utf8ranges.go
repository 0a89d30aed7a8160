package engine

import "unicode/utf8"

// byteRange is an inclusive range of byte values.
type byteRange struct {
	lo, hi byte
}

// utf8Sequences returns byte-range sequences that together match exactly
// the UTF-8 encodings of the runes in [lo, hi]. Surrogate halves are
// excluded; inputs are clamped to the valid rune space.
func utf8Sequences(lo, hi rune) [][]byteRange {
	if lo < 0 {
		lo = 0
	}
	if hi > utf8.MaxRune {
		hi = utf8.MaxRune
	}

	// Split on encoded-length boundaries so each piece encodes to a
	// uniform number of bytes, with the surrogate gap carved out.
	boundaries := [][2]rune{
		{0x0000, 0x007f},
		{0x0080, 0x07ff},
		{0x0800, 0xd7ff},
		{0xe000, 0xffff},
		{0x10000, utf8.MaxRune},
	}

	var out [][]byteRange
	for _, bound := range boundaries {
		l, h := lo, hi
		if l < bound[0] {
			l = bound[0]
		}
		if h > bound[1] {
			h = bound[1]
		}
		if l > h {
			continue
		}
		out = append(out, encodedSequences(l, h)...)
	}
	return out
}

// encodedSequences handles a rune range whose bounds encode to the same
// number of bytes.
func encodedSequences(lo, hi rune) [][]byteRange {
	a := utf8.AppendRune(nil, lo)
	b := utf8.AppendRune(nil, hi)
	return byteSequences(a, b)
}

// byteSequences enumerates range sequences between two encodings of equal
// length. Continuation positions range over [0x80, 0xbf] independently,
// which is exact once the rune range has been split on length and
// surrogate boundaries.
func byteSequences(a, b []byte) [][]byteRange {
	if len(a) == 1 {
		return [][]byteRange{{{a[0], b[0]}}}
	}
	if a[0] == b[0] {
		return prependByte(a[0], a[0], byteSequences(a[1:], b[1:]))
	}

	n := len(a) - 1
	var out [][]byteRange

	aFirst := a[0]
	if !allBytes(a[1:], 0x80) {
		out = append(out, prependByte(a[0], a[0], byteSequences(a[1:], contBytes(n, 0xbf)))...)
		aFirst = a[0] + 1
	}

	bFirst := b[0]
	if !allBytes(b[1:], 0xbf) {
		bFirst = b[0] - 1
	}

	if aFirst <= bFirst {
		seq := make([]byteRange, 0, n+1)
		seq = append(seq, byteRange{aFirst, bFirst})
		for i := 0; i < n; i++ {
			seq = append(seq, byteRange{0x80, 0xbf})
		}
		out = append(out, seq)
	}

	if bFirst != b[0] {
		out = append(out, prependByte(b[0], b[0], byteSequences(contBytes(n, 0x80), b[1:]))...)
	}
	return out
}

func prependByte(lo, hi byte, seqs [][]byteRange) [][]byteRange {
	out := make([][]byteRange, 0, len(seqs))
	for _, seq := range seqs {
		s := make([]byteRange, 0, len(seq)+1)
		s = append(s, byteRange{lo, hi})
		s = append(s, seq...)
		out = append(out, s)
	}
	return out
}

func allBytes(s []byte, b byte) bool {
	for _, c := range s {
		if c != b {
			return false
		}
	}
	return true
}

func contBytes(n int, b byte) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = b
	}
	return s
}
