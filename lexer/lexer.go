// Package lexer turns input positions into tokens for a given parse state.
// Built-in tokens are recognized by the grammar's lexical automaton; external
// tokens are delegated to the grammar's scanner.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/scanner"
	"github.com/dhamidi/sitter/source"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitter.lexer")

// Policy decides between an external token and a built-in token recognized
// at the same position.
type Policy int

const (
	// PolicyLongest lets an external token win outright only when its
	// precedence is higher than the built-in token's. Otherwise the longer
	// token wins and equal lengths go to the lower symbol id.
	PolicyLongest Policy = iota
	// PolicyExternalFirst lets a claiming scanner always win.
	PolicyExternalFirst
)

var policyNames = map[Policy]string{
	PolicyLongest:       "longest",
	PolicyExternalFirst: "external-first",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unknown"
}

func ParsePolicy(name string) (Policy, error) {
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown external policy %q", name)
}

type Token struct {
	Symbol grammar.Symbol
	// PadStart is where lexing began; the bytes up to Start were skipped.
	PadStart source.Length
	Start    source.Length
	End      source.Length
	// Lookahead counts the bytes past End that were examined to decide the
	// token, including the end of input.
	Lookahead int
	External  bool
	// State is the parse state the token was lexed in.
	State grammar.StateID
	// Before and After are the scanner state blobs around the token.
	Before []byte
	After  []byte
}

func (t Token) Size() source.Length {
	return t.End.Sub(t.Start)
}

func (t Token) Padding() source.Length {
	return t.Start.Sub(t.PadStart)
}

// Stats counts the lexer's work.
type Stats struct {
	TokensLexed   int
	ScannerCalls  int
	ScannerClaims int
}

type Lexer struct {
	lang      *grammar.Descriptor
	r         *source.Reader
	policy    Policy
	stepLimit int
	stats     Stats
}

type Option func(*Lexer)

func WithExternalPolicy(p Policy) Option {
	return func(l *Lexer) {
		l.policy = p
	}
}

// WithScanStepLimit bounds the cursor steps of a single scanner call.
func WithScanStepLimit(n int) Option {
	return func(l *Lexer) {
		l.stepLimit = n
	}
}

func New(lang *grammar.Descriptor, in source.Input, opts ...Option) *Lexer {
	l := &Lexer{
		lang:      lang,
		r:         source.NewReader(in),
		stepLimit: scanner.DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lexer) Stats() Stats {
	return l.stats
}

func (l *Lexer) Reader() *source.Reader {
	return l.r
}

type match struct {
	sym      grammar.Symbol
	start    source.Length
	end      source.Length
	external bool
	after    []byte
}

// Lex recognizes the token at pos for parse state st, with blob as the
// scanner state. Skipped whitespace becomes padding. Input that no token
// matches yields a one-rune SymbolError token; the only errors are scanner
// protocol violations.
func (l *Lexer) Lex(pos source.Length, st grammar.StateID, blob []byte) (Token, error) {
	l.stats.TokensLexed++
	valid := l.lang.Valid(st)
	extValid, scan := l.lang.ExternalValid(st)

	tok := Token{PadStart: pos, State: st, Before: blob, After: blob}
	examined := pos.Bytes
	cur := pos
	for {
		var ext *match
		if scan {
			m, seen, err := l.scanExternal(cur, extValid, blob)
			if err != nil {
				return Token{}, err
			}
			examined = max(examined, seen)
			ext = m
		}

		builtin, seen := l.scanBuiltin(cur, st, valid)
		examined = max(examined, seen)

		m := l.choose(ext, builtin)
		if m == nil {
			if _, ok := l.r.ByteAt(cur.Bytes); !ok {
				tok.Symbol = grammar.SymbolEnd
				tok.Start, tok.End = cur, cur
				break
			}
			if m, seen = l.scanBuiltin(cur, st, nil); m == nil {
				m = l.errorRune(cur)
			}
			examined = max(examined, seen)
		}
		if l.lang.Symbol(m.sym).Skip && m.end.Bytes > cur.Bytes {
			cur = m.end
			continue
		}

		tok.Symbol = m.sym
		tok.Start, tok.End = m.start, m.end
		tok.External = m.external
		if m.external {
			tok.After = m.after
			l.stats.ScannerClaims++
			log.Debugf("external %s at %d..%d", l.lang.SymbolName(m.sym), m.start.Bytes, m.end.Bytes)
		}
		break
	}
	tok.Lookahead = max(examined-tok.End.Bytes, 0)
	return tok, nil
}

func (l *Lexer) choose(ext, builtin *match) *match {
	switch {
	case ext == nil:
		return builtin
	case builtin == nil || l.policy == PolicyExternalFirst:
		return ext
	}
	if level(l.lang.Symbol(ext.sym)) > level(l.lang.Symbol(builtin.sym)) {
		return ext
	}
	switch {
	case ext.end.Bytes > builtin.end.Bytes:
		return ext
	case ext.end.Bytes < builtin.end.Bytes:
		return builtin
	case ext.sym < builtin.sym:
		return ext
	}
	return builtin
}

func level(info grammar.SymbolInfo) int {
	if info.Prec == nil {
		return 0
	}
	return info.Prec.Level
}

// scanBuiltin runs the lexical automaton from pos and returns the longest
// match whose symbol is valid, or any symbol when valid is nil. It also
// returns one past the furthest offset read.
func (l *Lexer) scanBuiltin(pos source.Length, st grammar.StateID, valid []bool) (*match, int) {
	state := l.lang.LexStart(st)
	bestEnd := -1
	var best grammar.Symbol
	i := pos.Bytes
	for {
		b, ok := l.r.ByteAt(i)
		i++
		if !ok {
			break
		}
		state = l.lang.LexState(state).Next(b)
		if state < 0 {
			break
		}
		for _, sym := range l.lang.LexState(state).Accept {
			if valid == nil || valid[sym] {
				bestEnd, best = i, sym
				break
			}
		}
	}
	if bestEnd < 0 {
		return nil, i
	}
	end := pos.Advance(l.r.Slice(pos.Bytes, bestEnd))
	return &match{sym: best, start: pos, end: end}, i
}

func (l *Lexer) errorRune(pos source.Length) *match {
	var buf [utf8.UTFMax]byte
	n := 0
	for n < len(buf) {
		b, ok := l.r.ByteAt(pos.Bytes + n)
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	_, size := utf8.DecodeRune(buf[:n])
	return &match{sym: grammar.SymbolError, start: pos, end: pos.Advance(buf[:size])}
}

func (l *Lexer) scanExternal(pos source.Length, valid []bool, blob []byte) (*match, int, error) {
	sc := l.lang.Scanner()
	state, err := sc.Deserialize(blob)
	if err != nil {
		return nil, pos.Bytes, &scanner.ProtocolError{Offset: pos.Bytes, Reason: fmt.Sprintf("deserialize: %v", err)}
	}

	l.stats.ScannerCalls++
	c := scanner.NewCursor(l.r, pos, l.stepLimit)
	next, claimed := sc.Scan(c, valid, state)
	if c.Exhausted() {
		return nil, c.Examined(), &scanner.ProtocolError{Offset: pos.Bytes, Reason: fmt.Sprintf("scan exceeded %d steps", l.stepLimit)}
	}
	if !claimed {
		return nil, c.Examined(), nil
	}

	idx, ok := c.Result()
	if !ok || idx < 0 || idx >= len(valid) || !valid[idx] {
		return nil, c.Examined(), &scanner.ProtocolError{Offset: pos.Bytes, Reason: fmt.Sprintf("claimed invalid external token %d", idx)}
	}
	after, err := sc.Serialize(next)
	if err != nil {
		return nil, c.Examined(), &scanner.ProtocolError{Offset: pos.Bytes, Reason: fmt.Sprintf("serialize: %v", err)}
	}
	if len(after) > l.lang.ScannerStateSize() {
		return nil, c.Examined(), &scanner.ProtocolError{Offset: pos.Bytes, Reason: fmt.Sprintf("state of %d bytes exceeds %d", len(after), l.lang.ScannerStateSize())}
	}

	start, end := c.Token()
	return &match{sym: l.lang.Externals()[idx], start: start, end: end, external: true, after: after}, c.Examined(), nil
}
