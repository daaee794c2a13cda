package ruby

import (
	"fmt"
	"slices"

	"github.com/dhamidi/sitter/scanner"
)

const maxLiteralDepth = 16

type literalKind byte

const (
	kindString literalKind = iota + 1
	kindInterpolating
	// kindInterpolation marks an open #{ inside an interpolating literal.
	kindInterpolation
)

// literal is one open context: a string body or an interpolation inside one.
type literal struct {
	kind literalKind
	// open is set when the delimiter nests, as in %(a (b) c).
	open  byte
	close byte
	depth byte
}

type literalState []literal

func (s literalState) top() (literal, bool) {
	if len(s) == 0 {
		return literal{}, false
	}
	return s[len(s)-1], true
}

func (s literalState) push(l literal) literalState {
	return append(slices.Clone(s), l)
}

func (s literalState) pop() literalState {
	if len(s) <= 1 {
		return nil
	}
	return slices.Clone(s[:len(s)-1])
}

func (s literalState) withDepth(depth byte) literalState {
	out := slices.Clone(s)
	out[len(out)-1].depth = depth
	return out
}

type literalScanner struct{}

func (literalScanner) Tag() byte { return 'l' }

func (literalScanner) Tokens() []int {
	return []int{stringStart, stringContent, interpolationStart, interpolationEnd, stringEnd}
}

func (literalScanner) Serialize(state scanner.State) ([]byte, error) {
	s, ok := state.(literalState)
	if !ok {
		return nil, fmt.Errorf("literal: unexpected state %T", state)
	}
	out := make([]byte, 0, 4*len(s))
	for _, l := range s {
		out = append(out, byte(l.kind), l.open, l.close, l.depth)
	}
	return out, nil
}

func (literalScanner) Deserialize(blob []byte) (scanner.State, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("literal: state of %d bytes is not a whole number of contexts", len(blob))
	}
	var s literalState
	for i := 0; i < len(blob); i += 4 {
		l := literal{kind: literalKind(blob[i]), open: blob[i+1], close: blob[i+2], depth: blob[i+3]}
		if l.kind < kindString || l.kind > kindInterpolation {
			return nil, fmt.Errorf("literal: unknown context kind %d", l.kind)
		}
		s = append(s, l)
	}
	return s, nil
}

func (literalScanner) Scan(c *scanner.Cursor, valid []bool, state scanner.State) (scanner.State, bool) {
	s, _ := state.(literalState)
	top, open := s.top()
	switch {
	case open && top.kind != kindInterpolation:
		return scanContent(c, valid, s)
	case open && valid[interpolationEnd] && c.Lookahead() == '}':
		c.Advance(false)
		c.MarkEnd()
		c.SetResult(interpolationEnd)
		return s.pop(), true
	case valid[stringStart]:
		return scanStart(c, s)
	}
	return state, false
}

func scanStart(c *scanner.Cursor, s literalState) (scanner.State, bool) {
	var l literal
	switch r := c.Lookahead(); r {
	case '"', '`':
		l = literal{kind: kindInterpolating, close: byte(r)}
		c.Advance(false)
	case '\'':
		l = literal{kind: kindString, close: '\''}
		c.Advance(false)
	case '%':
		c.Advance(false)
		l.kind = kindInterpolating
		switch c.Lookahead() {
		case 'q', 'w', 'i':
			l.kind = kindString
			c.Advance(false)
		case 'Q', 'W', 'I':
			c.Advance(false)
		}
		var ok bool
		if l.open, l.close, ok = delimiters(c.Lookahead()); !ok {
			return s, false
		}
		c.Advance(false)
	default:
		return s, false
	}
	if len(s) >= maxLiteralDepth {
		return s, false
	}
	c.MarkEnd()
	c.SetResult(stringStart)
	return s.push(l), true
}

// delimiters returns the opening and closing bytes of a percent literal
// started by r. Bracket pairs nest; any other punctuation closes itself.
func delimiters(r rune) (open, close byte, ok bool) {
	switch r {
	case '(':
		return '(', ')', true
	case '[':
		return '[', ']', true
	case '{':
		return '{', '}', true
	case '<':
		return '<', '>', true
	}
	if r > ' ' && r < 0x7f && !isWordRune(r) {
		return 0, byte(r), true
	}
	return 0, 0, false
}

// scanContent recognizes, inside a literal, its closing delimiter, the start
// of an interpolation, or the longest run of content before either.
func scanContent(c *scanner.Cursor, valid []bool, s literalState) (scanner.State, bool) {
	top, _ := s.top()
	depth := top.depth
	start := c.Offset()
	for !c.EOF() {
		r := c.Lookahead()
		if r == rune(top.close) && depth == 0 {
			break
		}
		switch {
		case r == rune(top.close):
			depth--
		case top.open != 0 && r == rune(top.open):
			depth++
		case r == '\\':
			c.Advance(false)
		case r == '#' && top.kind == kindInterpolating:
			c.MarkEnd()
			before := c.Offset()
			c.Advance(false)
			if c.Lookahead() != '{' {
				continue
			}
			if before > start {
				if !valid[stringContent] {
					return s, false
				}
				c.SetResult(stringContent)
				return s.withDepth(depth), true
			}
			if !valid[interpolationStart] || len(s) >= maxLiteralDepth {
				return s, false
			}
			c.Advance(false)
			c.MarkEnd()
			c.SetResult(interpolationStart)
			return s.withDepth(depth).push(literal{kind: kindInterpolation, open: '{', close: '}'}), true
		}
		c.Advance(false)
	}

	if c.Offset() > start {
		if !valid[stringContent] {
			return s, false
		}
		c.MarkEnd()
		c.SetResult(stringContent)
		return s.withDepth(depth), true
	}
	if c.EOF() || !valid[stringEnd] {
		return s, false
	}
	c.Advance(false)
	c.MarkEnd()
	c.SetResult(stringEnd)
	return s.pop(), true
}
