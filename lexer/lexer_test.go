package lexer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/gen"
	"github.com/dhamidi/sitter/grammar/grammartest"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/scanner"
	"github.com/dhamidi/sitter/source"
)

func arith(t *testing.T) *grammar.Descriptor {
	t.Helper()
	d, err := grammar.New(grammartest.Arith(true), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func at(b int) source.Length {
	return source.Length{Bytes: b, Extent: source.Point{Column: b}}
}

func TestLexArith(t *testing.T) {
	d := arith(t)
	l := lexer.New(d, source.String("a + bc"))

	tests := []struct {
		pos       int
		state     grammar.StateID
		sym       grammar.Symbol
		padStart  int
		start     int
		end       int
		lookahead int
	}{
		{0, 0, grammartest.Ident, 0, 0, 1, 1},
		{1, 1, grammartest.Plus, 1, 2, 3, 1},
		{3, 3, grammartest.Ident, 3, 4, 6, 1},
		{6, 4, grammartest.End, 6, 6, 6, 1},
	}
	for _, tt := range tests {
		tok, err := l.Lex(at(tt.pos), tt.state, nil)
		if err != nil {
			t.Fatalf("Lex(%d) error = %v", tt.pos, err)
		}
		if tok.Symbol != tt.sym || tok.PadStart.Bytes != tt.padStart || tok.Start.Bytes != tt.start || tok.End.Bytes != tt.end {
			t.Errorf("Lex(%d) = %s pad %d [%d,%d), want %s pad %d [%d,%d)", tt.pos,
				d.SymbolName(tok.Symbol), tok.PadStart.Bytes, tok.Start.Bytes, tok.End.Bytes,
				d.SymbolName(tt.sym), tt.padStart, tt.start, tt.end)
		}
		if tok.Lookahead != tt.lookahead {
			t.Errorf("Lex(%d) lookahead = %d, want %d", tt.pos, tok.Lookahead, tt.lookahead)
		}
		if tok.External {
			t.Errorf("Lex(%d) marked external", tt.pos)
		}
	}
	if n := l.Stats().TokensLexed; n != len(tests) {
		t.Errorf("TokensLexed = %d, want %d", n, len(tests))
	}
}

func TestLexErrorMode(t *testing.T) {
	d := arith(t)
	tests := []struct {
		input string
		sym   grammar.Symbol
		end   int
	}{
		// IDENT is not valid after an expression but is still recognized.
		{"ab", grammartest.Ident, 2},
		{"?x", grammar.SymbolError, 1},
		{"é+", grammar.SymbolError, 2},
		{"\xff", grammar.SymbolError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := lexer.New(d, source.String(tt.input)).Lex(at(0), 1, nil)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if tok.Symbol != tt.sym || tok.End.Bytes != tt.end {
				t.Errorf("got %s ending at %d, want %s ending at %d", d.SymbolName(tok.Symbol), tok.End.Bytes, d.SymbolName(tt.sym), tt.end)
			}
		})
	}
}

// prefixScanner claims its prefix as external token 0. Its state counts the
// tokens it has claimed.
type prefixScanner struct {
	prefix  string
	result  int
	forever bool
	bloat   bool
}

func (s prefixScanner) Serialize(state scanner.State) ([]byte, error) {
	n := state.(int)
	if n == 0 {
		return nil, nil
	}
	if s.bloat {
		return make([]byte, 300), nil
	}
	return []byte{byte(n)}, nil
}

func (s prefixScanner) Deserialize(blob []byte) (scanner.State, error) {
	if len(blob) == 0 {
		return 0, nil
	}
	return int(blob[0]), nil
}

func (s prefixScanner) Scan(c *scanner.Cursor, valid []bool, state scanner.State) (scanner.State, bool) {
	if s.forever {
		for !c.Exhausted() {
			c.Lookahead()
		}
		return state, false
	}
	for c.Lookahead() == ' ' {
		c.Advance(true)
	}
	for _, r := range s.prefix {
		if c.Lookahead() != r {
			return state, false
		}
		c.Advance(false)
	}
	c.MarkEnd()
	c.SetResult(s.result)
	return state.(int) + 1, true
}

const tagSource = `
name: tags
tokens:
  - name: word
    pattern: '[a-z]+'
externals:
  - name: tag
skip: [' +']
rules: |
  doc = { item } .
  item = word | tag .
`

func tags(t *testing.T, src string, sc scanner.Scanner) *grammar.Descriptor {
	t.Helper()
	d, err := gen.Build(strings.NewReader(src), sc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return d
}

func TestLexExternalPolicy(t *testing.T) {
	prec := tagSource + "precedence:\n  - tokens: [tag]\n"
	tests := []struct {
		name   string
		src    string
		policy lexer.Policy
		input  string
		want   string
		end    int
	}{
		{"longer builtin wins", tagSource, lexer.PolicyLongest, "abc", "word", 3},
		{"equal length goes to lower id", tagSource, lexer.PolicyLongest, "ab", "word", 2},
		{"longer external wins", tagSource, lexer.PolicyLongest, "ab-", "tag", 3},
		{"external first", tagSource, lexer.PolicyExternalFirst, "abc", "tag", 2},
		{"external precedence", prec, lexer.PolicyLongest, "abc", "tag", 2},
		{"skipped blanks", tagSource, lexer.PolicyExternalFirst, "  abc", "tag", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := prefixScanner{prefix: "ab"}
			if tt.input == "ab-" {
				sc.prefix = "ab-"
			}
			d := tags(t, tt.src, sc)
			l := lexer.New(d, source.String(tt.input), lexer.WithExternalPolicy(tt.policy))
			tok, err := l.Lex(at(0), d.Start(), nil)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if got := d.SymbolName(tok.Symbol); got != tt.want || tok.End.Bytes != tt.end {
				t.Errorf("got %s ending at %d, want %s ending at %d", got, tok.End.Bytes, tt.want, tt.end)
			}
			if tok.External != (tt.want == "tag") {
				t.Errorf("External = %v", tok.External)
			}
			if tok.External && string(tok.After) != "\x01" {
				t.Errorf("After = %q, want the advanced scanner state", tok.After)
			}
			if !tok.External && tok.After != nil {
				t.Errorf("After = %q, want the unchanged state", tok.After)
			}
		})
	}
}

func TestLexProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		sc   prefixScanner
	}{
		{"non-terminating", prefixScanner{forever: true}},
		{"invalid token", prefixScanner{prefix: "a", result: 3}},
		{"oversized state", prefixScanner{prefix: "a", bloat: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tags(t, tagSource, tt.sc)
			l := lexer.New(d, source.String("abc"), lexer.WithScanStepLimit(100))
			_, err := l.Lex(at(0), d.Start(), nil)
			if !errors.Is(err, scanner.ErrProtocolViolation) {
				t.Fatalf("Lex() error = %v, want ErrProtocolViolation", err)
			}
			var pe *scanner.ProtocolError
			if !errors.As(err, &pe) || pe.Offset != 0 {
				t.Errorf("error = %#v, want a ProtocolError at offset 0", err)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []lexer.Policy{lexer.PolicyLongest, lexer.PolicyExternalFirst} {
		got, err := lexer.ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p, got, err)
		}
	}
	if _, err := lexer.ParsePolicy("shortest"); err == nil {
		t.Error("ParsePolicy(shortest) succeeded")
	}
}
