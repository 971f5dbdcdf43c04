package pyparse

import "bytes"

// LineStart returns the offset of the first byte of the line containing pos.
func LineStart(source []byte, pos uint) uint {
	if pos > uint(len(source)) {
		pos = uint(len(source))
	}
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return uint(i) + 1
	}
	return 0
}

// LineEnd returns the offset of the '\n' ending the line containing pos,
// or len(source) when the last line is unterminated.
func LineEnd(source []byte, pos uint) uint {
	if pos >= uint(len(source)) {
		return uint(len(source))
	}
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + uint(i)
	}
	return uint(len(source))
}

// NextLineStart returns the offset of the first byte of the line after the
// one containing pos, or len(source) for the last line.
func NextLineStart(source []byte, pos uint) uint {
	end := LineEnd(source, pos)
	if end < uint(len(source)) {
		return end + 1
	}
	return end
}

// Indentation returns the leading whitespace of the line containing pos,
// up to pos itself.
func Indentation(source []byte, pos uint) string {
	start := LineStart(source, pos)
	for i := start; i < pos; i++ {
		if source[i] != ' ' && source[i] != '\t' {
			return string(source[start:i])
		}
	}
	return string(source[start:pos])
}
