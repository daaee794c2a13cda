package ruby

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dhamidi/sitter/scanner"
)

const (
	maxPendingHeredocs = 3
	maxDelimiter       = 64
)

type heredoc struct {
	delimiter string
	// indented heredocs (<<~ and <<-) may indent their closing delimiter.
	indented bool
}

// heredocState lists the heredocs whose bodies have not been read yet, in
// the order they were opened.
type heredocState []heredoc

type heredocScanner struct{}

func (heredocScanner) Tag() byte { return 'h' }

func (heredocScanner) Tokens() []int { return []int{heredocBeginning, heredocBody} }

func (heredocScanner) Serialize(state scanner.State) ([]byte, error) {
	s, ok := state.(heredocState)
	if !ok {
		return nil, fmt.Errorf("heredoc: unexpected state %T", state)
	}
	var out []byte
	for _, h := range s {
		flag := byte(0)
		if h.indented {
			flag = 1
		}
		out = append(out, flag, byte(len(h.delimiter)))
		out = append(out, h.delimiter...)
	}
	return out, nil
}

func (heredocScanner) Deserialize(blob []byte) (scanner.State, error) {
	var s heredocState
	for len(blob) > 0 {
		if len(blob) < 2 || int(blob[1]) > len(blob)-2 {
			return nil, fmt.Errorf("heredoc: truncated state")
		}
		n := int(blob[1])
		s = append(s, heredoc{indented: blob[0] == 1, delimiter: string(blob[2 : 2+n])})
		blob = blob[2+n:]
	}
	return s, nil
}

// Scan reads a heredoc body at the start of the line after its opener, or
// an opener such as <<~SQL, <<-EOS or <<'RAW'.
func (heredocScanner) Scan(c *scanner.Cursor, valid []bool, state scanner.State) (scanner.State, bool) {
	s, _ := state.(heredocState)
	if len(s) > 0 && valid[heredocBody] && c.Column() == 0 {
		return scanBody(c, s)
	}
	if valid[heredocBeginning] && c.Lookahead() == '<' {
		return scanBeginning(c, s)
	}
	return state, false
}

func scanBeginning(c *scanner.Cursor, s heredocState) (scanner.State, bool) {
	c.Advance(false)
	if c.Lookahead() != '<' {
		return s, false
	}
	c.Advance(false)

	var h heredoc
	if r := c.Lookahead(); r == '~' || r == '-' {
		h.indented = true
		c.Advance(false)
	}
	quote := c.Lookahead()
	if quote == '\'' || quote == '"' || quote == '`' {
		c.Advance(false)
	} else {
		quote = 0
	}
	var name strings.Builder
	for isWordRune(c.Lookahead()) {
		name.WriteRune(c.Lookahead())
		c.Advance(false)
	}
	if quote != 0 {
		if c.Lookahead() != quote {
			return s, false
		}
		c.Advance(false)
	}
	if name.Len() == 0 || name.Len() > maxDelimiter || len(s) >= maxPendingHeredocs {
		return s, false
	}
	h.delimiter = name.String()

	c.MarkEnd()
	c.SetResult(heredocBeginning)
	return append(slices.Clone(s), h), true
}

// scanBody consumes lines up to and including the first pending heredoc's
// closing delimiter, but not the newline after it. A body missing its
// delimiter runs to the end of input.
func scanBody(c *scanner.Cursor, s heredocState) (scanner.State, bool) {
	h := s[0]
	start := c.Offset()
	for !c.EOF() {
		var line strings.Builder
		for !c.EOF() && c.Lookahead() != '\n' {
			line.WriteRune(c.Lookahead())
			c.Advance(false)
		}
		text := strings.TrimRight(line.String(), "\r")
		if h.indented {
			text = strings.TrimLeft(text, " \t")
		}
		if text == h.delimiter || c.EOF() {
			break
		}
		c.Advance(false)
	}
	if c.Offset() == start {
		return s, false
	}
	c.MarkEnd()
	c.SetResult(heredocBody)
	rest := heredocState(slices.Clone(s[1:]))
	if len(rest) == 0 {
		rest = nil
	}
	return rest, true
}

func isWordRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
