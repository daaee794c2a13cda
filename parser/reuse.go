package parser

import (
	"bytes"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
)

type reuseFrame struct {
	children []*syntax.Subtree
	index    int
	// pos is where the padding of children[index] starts.
	pos source.Length
}

// reuseCursor walks the previous tree in document order.
type reuseCursor struct {
	stack []reuseFrame
}

func newReuseCursor(root *syntax.Subtree) *reuseCursor {
	return &reuseCursor{stack: []reuseFrame{{children: root.Children()}}}
}

func (c *reuseCursor) current() (*syntax.Subtree, source.Length, bool) {
	for len(c.stack) > 0 {
		f := &c.stack[len(c.stack)-1]
		if f.index < len(f.children) {
			return f.children[f.index], f.pos, true
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	return nil, source.Length{}, false
}

func (c *reuseCursor) advance() {
	if st, _, ok := c.current(); ok {
		f := &c.stack[len(c.stack)-1]
		f.pos = f.pos.Add(st.Total())
		f.index++
	}
}

func (c *reuseCursor) descend() {
	st, pos, ok := c.current()
	if !ok {
		return
	}
	c.advance()
	c.stack = append(c.stack, reuseFrame{children: st.Children(), pos: pos})
}

// candidate returns the outermost subtree whose padding starts at pos.
func (c *reuseCursor) candidate(pos source.Length) (*syntax.Subtree, source.Length) {
	for {
		st, at, ok := c.current()
		if !ok {
			return nil, source.Length{}
		}
		switch end := at.Add(st.Total()); {
		case end.Bytes <= pos.Bytes:
			c.advance()
		case at.Bytes > pos.Bytes:
			return nil, source.Length{}
		case at.Bytes < pos.Bytes:
			if st.IsLeaf() {
				c.advance()
			} else {
				c.descend()
			}
		default:
			return st, at
		}
	}
}

// tryReuse looks for a subtree of the previous tree to stand in for v's next
// token. It only runs while a single version is alive.
func (s *session) tryReuse(v *version) bool {
	if s.reuse == nil || len(s.versions) > 1 || len(s.finished) > 0 {
		return false
	}
	for {
		st, at := s.reuse.candidate(v.pos())
		if st == nil {
			return false
		}
		if s.reusable(v, st) {
			if st.IsLeaf() {
				if s.lang.IsTerminal(st.Symbol()) {
					v.la = &lookahead{tok: leafToken(st, at, v.lexIn), reuse: st}
					s.reuse.advance()
					s.stats.Reused++
					return true
				}
			} else if first := firstLeaf(st); s.lang.IsTerminal(first.Symbol()) && !first.IsExtra() {
				tok := leafToken(first, at, v.lexIn)
				if s.reachesState(v, st, tok.Symbol) {
					v.la = &lookahead{tok: tok, reuse: st}
					s.reuse.advance()
					return true
				}
			}
		}
		if st.IsLeaf() {
			return false
		}
		s.reuse.descend()
	}
}

func (s *session) reusable(v *version, st *syntax.Subtree) bool {
	switch {
	case st.IsChanged(), st.HasError(), st.IsFragile(), st.IsMissing():
		return false
	case st.Size().Bytes == 0:
		return false
	case st.LexState() == grammar.NoState || int(st.LexState()) >= s.lang.StateCount():
		return false
	}
	return s.lang.Mode(st.LexState()) == s.lang.Mode(v.lexIn) && bytes.Equal(st.ScannerBefore(), v.blob)
}

func firstLeaf(st *syntax.Subtree) *syntax.Subtree {
	for !st.IsLeaf() {
		st = st.Children()[0]
	}
	return st
}

func leafToken(st *syntax.Subtree, padStart source.Length, lexIn grammar.StateID) lexer.Token {
	start := padStart.Add(st.Padding())
	return lexer.Token{
		Symbol:    st.Symbol(),
		PadStart:  padStart,
		Start:     start,
		End:       start.Add(st.Size()),
		Lookahead: st.Lookahead(),
		External:  st.IsExternal(),
		State:     lexIn,
		Before:    st.ScannerBefore(),
		After:     st.ScannerAfter(),
	}
}

// reachesState reports whether the stack of v, reducing on the first token
// of st, arrives at the state st was originally pushed in without any
// ambiguity on the way.
func (s *session) reachesState(v *version, st *syntax.Subtree, first grammar.Symbol) bool {
	vs := &virtualStack{lang: s.lang, base: v.stack}
	for i := 0; i < maxVirtualSteps; i++ {
		top := vs.top()
		if top == st.ParseState() {
			_, ok := s.lang.Goto(top, st.Symbol())
			return ok && s.canPush(top, first)
		}
		if !s.reducesOnly(top, first) {
			return false
		}
		if !vs.reduce(s.lang.Actions(top, first)[0].Rule) {
			return false
		}
	}
	return false
}

// canPush reports whether a node starting with sym may be pushed in st
// instead of being rebuilt token by token.
func (s *session) canPush(st grammar.StateID, sym grammar.Symbol) bool {
	acts := s.lang.Actions(st, sym)
	switch len(acts) {
	case 0:
		return s.lang.Symbol(sym).Extra
	case 1:
		a := acts[0]
		return a.Kind != grammar.ActionReduce || s.lang.Rule(a.Rule).Arity() == 0
	}
	return false
}

func (s *session) reducesOnly(st grammar.StateID, sym grammar.Symbol) bool {
	acts := s.lang.Actions(st, sym)
	return len(acts) == 1 && acts[0].Kind == grammar.ActionReduce && s.lang.Rule(acts[0].Rule).Arity() > 0
}

func (s *session) pushReused(v *version) {
	node := v.la.reuse
	next, ok := s.lang.Goto(v.top(), node.Symbol())
	if !ok {
		v.la.reuse = nil
		return
	}
	v.stack = v.stack.push(next, node, v.pos().Add(node.Total()))
	v.lexIn = node.NextLexState()
	v.blob = node.ScannerAfter()
	v.la = nil
	s.stats.Reused++
}
