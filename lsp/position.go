package lsp

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// offsetAt converts a protocol position, whose character is counted in UTF-16
// code units, to a byte offset in text. Positions past the end of a line
// clamp to the line end; lines past the end of text clamp to len(text).
func offsetAt(text []byte, pos protocol.Position) int {
	i := 0
	for line := 0; line < int(pos.Line); line++ {
		j := bytes.IndexByte(text[i:], '\n')
		if j < 0 {
			return len(text)
		}
		i += j + 1
	}
	units := 0
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRune(text[i:])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > int(pos.Character) {
			break
		}
		units += n
		i += size
	}
	return i
}

func positionAt(text []byte, offset int) protocol.Position {
	offset = min(offset, len(text))
	start := bytes.LastIndexByte(text[:offset], '\n') + 1
	line := bytes.Count(text[:start], []byte{'\n'})
	units := 0
	for _, r := range string(text[start:offset]) {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(units)}
}
