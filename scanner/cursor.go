package scanner

import (
	"unicode/utf8"

	"github.com/dhamidi/sitter/source"
)

// DefaultStepLimit bounds the number of Lookahead and Advance calls a single
// Scan may make.
const DefaultStepLimit = 1 << 16

// Cursor is the scanner's view of the input. Bytes skipped with Advance(true)
// before any other advance become padding of the token instead of part of it.
type Cursor struct {
	r *source.Reader

	origin source.Length
	pos    source.Length
	start  source.Length
	end    source.Length
	marked bool

	result    int
	hasResult bool

	steps     int
	limit     int
	examined  int
	exhausted bool
}

func NewCursor(r *source.Reader, pos source.Length, limit int) *Cursor {
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	return &Cursor{
		r:        r,
		origin:   pos,
		pos:      pos,
		start:    pos,
		limit:    limit,
		examined: pos.Bytes,
	}
}

func (c *Cursor) step() bool {
	c.steps++
	if c.steps > c.limit {
		c.exhausted = true
	}
	return !c.exhausted
}

func (c *Cursor) decode(offset int) (rune, int) {
	var buf [utf8.UTFMax]byte
	n := 0
	for n < len(buf) {
		b, ok := c.r.ByteAt(offset + n)
		if !ok {
			break
		}
		buf[n] = b
		n++
		if n == 1 && b < utf8.RuneSelf {
			break
		}
	}
	if c.examined < offset+max(n, 1) {
		c.examined = offset + max(n, 1)
	}
	if n == 0 {
		return 0, 0
	}
	r, size := utf8.DecodeRune(buf[:n])
	return r, size
}

// Lookahead returns the rune at the cursor, or 0 at the end of input.
func (c *Cursor) Lookahead() rune {
	if !c.step() {
		return 0
	}
	r, _ := c.decode(c.pos.Bytes)
	return r
}

// EOF reports whether the cursor is at the end of input.
func (c *Cursor) EOF() bool {
	if c.exhausted {
		return true
	}
	_, size := c.decode(c.pos.Bytes)
	return size == 0
}

// Advance moves past the current rune. With skip set, and as long as nothing
// has been consumed yet, the rune is treated as whitespace before the token.
func (c *Cursor) Advance(skip bool) {
	if !c.step() {
		return
	}
	_, size := c.decode(c.pos.Bytes)
	if size == 0 {
		return
	}
	c.pos = c.pos.Advance(c.r.Slice(c.pos.Bytes, c.pos.Bytes+size))
	if skip && c.start.Bytes == c.pos.Bytes-size {
		c.start = c.pos
	}
}

// MarkEnd fixes the end of the token at the current position. Later advances
// only serve as lookahead.
func (c *Cursor) MarkEnd() {
	c.end = c.pos
	c.marked = true
}

// SetResult selects the recognized token by its external index.
func (c *Cursor) SetResult(index int) {
	c.result = index
	c.hasResult = true
}

func (c *Cursor) Column() int {
	return c.pos.Extent.Column
}

func (c *Cursor) Offset() int {
	return c.pos.Bytes
}

// Result returns the index passed to SetResult.
func (c *Cursor) Result() (int, bool) {
	return c.result, c.hasResult
}

// Token returns the start and end of the recognized token.
func (c *Cursor) Token() (start, end source.Length) {
	end = c.pos
	if c.marked {
		end = c.end
	}
	if end.Bytes < c.start.Bytes {
		end = c.start
	}
	return c.start, end
}

// Examined is one past the furthest byte the scanner looked at.
func (c *Cursor) Examined() int {
	return c.examined
}

func (c *Cursor) Exhausted() bool {
	return c.exhausted
}

// rewind returns the cursor to where it started, keeping the step count.
func (c *Cursor) rewind() {
	c.pos = c.origin
	c.start = c.origin
	c.end = source.Length{}
	c.marked = false
	c.result = 0
	c.hasResult = false
}
