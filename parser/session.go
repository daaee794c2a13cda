package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
)

type lexKey struct {
	pos  int
	mode int
	blob string
}

const lexCacheSize = 64

// session is the state of a single parse.
type session struct {
	p        *Parser
	lang     *grammar.Descriptor
	lex      *lexer.Lexer
	reuse    *reuseCursor
	versions []*version
	finished []*version
	nextID   int
	cache    map[lexKey]lexer.Token
	stats    Stats
}

func newSession(p *Parser, in source.Input, prev *syntax.Tree) *session {
	s := &session{
		p:     p,
		lang:  p.lang,
		lex:   lexer.New(p.lang, in, p.lexOpts...),
		cache: make(map[lexKey]lexer.Token),
	}
	if prev != nil {
		s.reuse = newReuseCursor(prev.RootSubtree())
	}
	start := p.lang.Start()
	s.versions = []*version{{
		stack: &stackEntry{state: start},
		lexIn: start,
	}}
	s.nextID = 1
	s.stats.MaxVersions = 1
	return s
}

func (s *session) run(ctx context.Context) (*syntax.Tree, error) {
	for len(s.versions) > 0 {
		if err := ctx.Err(); err != nil {
			reason := ErrCancelled
			if errors.Is(err, context.DeadlineExceeded) {
				reason = ErrTimeout
			}
			return s.partial(), fmt.Errorf("parse %s: %w", s.lang.Name(), reason)
		}
		if err := s.step(s.next()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.lang.Name(), err)
		}
		s.condense()
	}

	best := s.finished[0]
	for _, v := range s.finished[1:] {
		if prefer(v, best) < 0 {
			best = v
		}
	}
	return syntax.NewTree(s.lang, best.root, false), nil
}

// next returns the version that lags furthest behind.
func (s *session) next() *version {
	best := s.versions[0]
	for _, v := range s.versions[1:] {
		if v.pos().Bytes < best.pos().Bytes {
			best = v
		}
	}
	return best
}

func (s *session) remove(v *version) {
	s.versions = slices.DeleteFunc(s.versions, func(w *version) bool { return w == v })
}

func (s *session) finish(v *version, root *syntax.Subtree) {
	v.root = root
	s.remove(v)
	s.finished = append(s.finished, v)
}

func (s *session) step(v *version) error {
	if v.la == nil {
		if !s.tryReuse(v) {
			tok, err := s.lexAt(v.pos(), v.lexIn, v.blob)
			if err != nil {
				return err
			}
			v.la = &lookahead{tok: tok}
		}
	}

	la := v.la
	if la.reuse != nil && !la.reuse.IsLeaf() {
		if v.top() == la.reuse.ParseState() && s.canPush(v.top(), la.tok.Symbol) {
			s.pushReused(v)
			return nil
		}
		if v.top() == la.reuse.ParseState() || !s.reducesOnly(v.top(), la.tok.Symbol) {
			la.reuse = nil
		}
	}

	sym := la.tok.Symbol
	acts := s.lang.Actions(v.top(), sym)
	switch {
	case len(acts) == 0 && s.lang.Symbol(sym).Extra && !la.missing:
		s.shift(v, v.top(), true)
		return nil
	case len(acts) == 0:
		return s.fail(v)
	case len(acts) > 1:
		s.stats.Forks++
		v.decisions = append(v.decisions, 0)
		v.shifted = 0
		for i, a := range acts[1:] {
			c := v.clone(s.nextID)
			s.nextID++
			c.decisions[len(c.decisions)-1] = i + 1
			s.versions = append(s.versions, c)
			s.apply(c, a)
		}
	}
	s.apply(v, acts[0])
	return nil
}

func (s *session) apply(v *version, a grammar.Action) {
	switch a.Kind {
	case grammar.ActionShift:
		s.shift(v, a.State, false)
	case grammar.ActionReduce:
		s.reduce(v, a.Rule)
	case grammar.ActionAccept:
		s.accept(v)
	}
}

func (s *session) lexAt(pos source.Length, st grammar.StateID, blob []byte) (lexer.Token, error) {
	key := lexKey{pos: pos.Bytes, mode: s.lang.Mode(st), blob: string(blob)}
	if tok, ok := s.cache[key]; ok {
		tok.State = st
		return tok, nil
	}
	tok, err := s.lex.Lex(pos, st, blob)
	if err != nil {
		return lexer.Token{}, err
	}
	if len(s.cache) >= lexCacheSize {
		clear(s.cache)
	}
	s.cache[key] = tok
	return tok, nil
}

func (s *session) leaf(tok lexer.Token, parseState, next grammar.StateID) *syntax.Subtree {
	return syntax.NewLeaf(s.lang, tok.Symbol, tok.Padding(), tok.Size(), syntax.LeafInfo{
		ParseState:    parseState,
		LexState:      tok.State,
		NextLexState:  next,
		Lookahead:     tok.Lookahead,
		External:      tok.External,
		ScannerBefore: tok.Before,
		ScannerAfter:  tok.After,
	})
}

func (s *session) shift(v *version, to grammar.StateID, extra bool) {
	la := v.la
	var leaf *syntax.Subtree
	switch r := la.reuse; {
	case la.missing:
		leaf = syntax.NewMissing(s.lang, la.tok.Symbol, v.top(), v.blob)
	case r != nil && r.IsLeaf() && r.IsExtra() == extra &&
		r.ParseState() == v.top() && r.LexState() == la.tok.State && r.NextLexState() == to:
		leaf = r
	default:
		leaf = s.leaf(la.tok, v.top(), to)
		if extra {
			leaf = leaf.AsExtra()
		}
	}

	v.stack = v.stack.push(to, leaf, la.tok.End)
	if !la.missing {
		v.lexIn = to
		v.blob = la.tok.After
	}
	v.la = la.next
	if len(s.versions) > 1 {
		v.shifted++
	}
}

func (s *session) reduce(v *version, rule int) {
	r := s.lang.Rule(rule)
	e := v.stack
	var trailing []*stackEntry
	if r.Arity() > 0 {
		for e.tree != nil && e.tree.IsExtra() {
			trailing = append(trailing, e)
			e = e.prev
		}
	}
	end := e.pos
	var children []*syntax.Subtree
	for n := r.Arity(); n > 0 && e.tree != nil; e = e.prev {
		children = append(children, e.tree)
		if !e.tree.IsExtra() {
			n--
		}
	}
	slices.Reverse(children)

	next, ok := s.lang.Goto(e.state, r.LHS)
	if !ok {
		log.Errorf("%s: no goto on %s from state %d", s.lang.Name(), s.lang.SymbolName(r.LHS), e.state)
		next = e.state
	}
	node := syntax.NewNode(s.lang, r.LHS, children, syntax.NodeInfo{
		ParseState: e.state,
		Lookahead:  max(v.la.tok.End.Bytes+v.la.tok.Lookahead-end.Bytes, 0),
		Fragile:    len(s.versions) > 1,
	})

	stack := e.push(next, node, end)
	for i := len(trailing) - 1; i >= 0; i-- {
		stack = stack.push(next, trailing[i].tree, trailing[i].pos)
	}
	v.stack = stack
}

func (s *session) accept(v *version) {
	var sym grammar.Symbol
	var children []*syntax.Subtree
	found := false
	for _, t := range v.stack.trees() {
		if !found && !t.IsExtra() {
			sym = t.Symbol()
			children = append(children, t.Children()...)
			found = true
			continue
		}
		children = append(children, t)
	}
	if !found {
		sym = grammar.SymbolError
	}
	s.finish(v, syntax.NewRoot(s.lang, sym, children, v.la.tok.End, syntax.NodeInfo{ParseState: s.lang.Start()}))
}

// condense merges versions that reached the same state at the same position
// and prunes the rest to the configured bounds.
func (s *session) condense() {
	out := make([]*version, 0, len(s.versions))
	for _, v := range s.versions {
		merged := false
		if v.la == nil {
			for i, w := range out {
				if w.la == nil && w.pos().Bytes == v.pos().Bytes && w.top() == v.top() &&
					w.lexIn == v.lexIn && bytes.Equal(w.blob, v.blob) {
					if prefer(v, w) < 0 {
						out[i] = v
					}
					merged = true
					s.stats.Merges++
					break
				}
			}
		}
		if !merged {
			out = append(out, v)
		}
	}
	s.versions = out

	if len(s.versions) > 1 {
		for _, v := range s.versions {
			if v.shifted > s.p.ambiguityLookahead {
				s.versions = []*version{s.preferred()}
				break
			}
		}
	}
	if len(s.versions) > s.p.maxVersions {
		slices.SortStableFunc(s.versions, prefer)
		s.versions = s.versions[:s.p.maxVersions]
	}
	if len(s.versions) == 1 {
		s.versions[0].shifted = 0
	}
	s.stats.MaxVersions = max(s.stats.MaxVersions, len(s.versions))
}

func (s *session) preferred() *version {
	best := s.versions[0]
	for _, v := range s.versions[1:] {
		if prefer(v, best) < 0 {
			best = v
		}
	}
	return best
}

// partial wraps what the most preferred version has built so far.
func (s *session) partial() *syntax.Tree {
	if len(s.versions) == 0 && len(s.finished) > 0 {
		return syntax.NewTree(s.lang, s.finished[0].root, true)
	}
	v := s.preferred()
	return syntax.NewTree(s.lang, s.errorRoot(v.stack, v.pos()), true)
}

func (s *session) errorRoot(stack *stackEntry, total source.Length) *syntax.Subtree {
	children := stack.trees()
	if len(children) == 0 {
		children = []*syntax.Subtree{syntax.NewLeaf(s.lang, grammar.SymbolError, source.Length{}, source.Length{}, syntax.LeafInfo{
			LexState:     grammar.NoState,
			NextLexState: grammar.NoState,
		})}
	}
	return syntax.NewRoot(s.lang, grammar.SymbolError, children, total, syntax.NodeInfo{ParseState: s.lang.Start()})
}
