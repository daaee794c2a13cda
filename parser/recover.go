package parser

import (
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/syntax"
)

// fail handles a lookahead without any action. A version that is not the
// last one alive is dropped; the last one recovers.
func (s *session) fail(v *version) error {
	if len(s.versions) > 1 || len(s.finished) > 0 {
		s.remove(v)
		return nil
	}
	return s.recover(v)
}

// recover repairs the input in front of v, trying in turn to skip a few
// tokens, to insert a missing one, and to skip the offending token alone.
// At the end of input it inserts tokens until the parse can finish, and
// otherwise wraps the whole stack in an error.
//
// Trees in front of the repair are marked fragile, with a lookahead that
// covers every token lexed while recovering.
func (s *session) recover(v *version) error {
	if pos := v.pos().Bytes; pos != v.missingAt {
		v.missing, v.missingAt = 0, pos
	}
	la := v.la
	la.reuse = nil
	tok := la.tok
	top := v.top()
	reach := tok.End.Bytes + tok.Lookahead
	defer func() { v.stack = v.stack.markFragile(reach) }()

	if tok.Symbol != grammar.SymbolEnd && !la.missing {
		toks := []lexer.Token{tok}
		for {
			last := toks[len(toks)-1]
			next, err := s.lexAt(last.End, top, last.After)
			if err != nil {
				return err
			}
			reach = max(reach, next.End.Bytes+next.Lookahead)
			if s.canContinue(top, next.Symbol) {
				s.deleteTokens(v, toks, next)
				return nil
			}
			if next.Symbol == grammar.SymbolEnd || len(toks) >= s.p.deletionBudget {
				break
			}
			toks = append(toks, next)
		}
	}

	if v.missing < s.p.maxMissing {
		for _, sym := range s.lang.Expected(top) {
			if sym == grammar.SymbolEnd {
				continue
			}
			vs := &virtualStack{lang: s.lang, base: v.stack}
			if vs.advance(sym) && vs.advance(tok.Symbol) {
				s.insertMissing(v, sym)
				return nil
			}
		}
	}

	if tok.Symbol != grammar.SymbolEnd {
		next, err := s.lexAt(tok.End, top, tok.After)
		if err != nil {
			return err
		}
		reach = max(reach, next.End.Bytes+next.Lookahead)
		s.deleteTokens(v, []lexer.Token{tok}, next)
		return nil
	}

	if v.missing < s.p.maxMissing {
		for _, sym := range s.lang.Expected(top) {
			if sym != grammar.SymbolEnd {
				s.insertMissing(v, sym)
				return nil
			}
		}
	}
	log.Debugf("%s: giving up at byte %d", s.lang.Name(), tok.End.Bytes)
	s.finish(v, s.errorRoot(v.stack, tok.End))
	return nil
}

func (s *session) canContinue(st grammar.StateID, sym grammar.Symbol) bool {
	if sym == grammar.SymbolError {
		return false
	}
	return len(s.lang.Actions(st, sym)) > 0 || s.lang.Symbol(sym).Extra
}

// deleteTokens pushes toks as an error node and continues with next.
func (s *session) deleteTokens(v *version, toks []lexer.Token, next lexer.Token) {
	top := v.top()
	leaves := make([]*syntax.Subtree, len(toks))
	for i, t := range toks {
		leaves[i] = s.leaf(t, top, top).AsFragile(0)
	}
	var node *syntax.Subtree
	if len(toks) == 1 && toks[0].Symbol == grammar.SymbolError {
		node = leaves[0].AsExtra()
	} else {
		node = syntax.NewError(s.lang, leaves, syntax.NodeInfo{ParseState: top}).AsExtra()
	}

	last := toks[len(toks)-1]
	node = node.AsFragile(next.End.Bytes + next.Lookahead - last.End.Bytes)
	v.stack = v.stack.push(top, node, last.End)
	v.lexIn = top
	v.blob = last.After
	v.la = &lookahead{tok: next}
	s.stats.Deletions += len(toks)
	log.Debugf("%s: skipped %d tokens at byte %d", s.lang.Name(), len(toks), toks[0].Start.Bytes)
}

func (s *session) insertMissing(v *version, sym grammar.Symbol) {
	pos := v.pos()
	v.la = &lookahead{
		tok: lexer.Token{
			Symbol:   sym,
			PadStart: pos,
			Start:    pos,
			End:      pos,
			State:    v.lexIn,
			Before:   v.blob,
			After:    v.blob,
		},
		missing: true,
		next:    v.la,
	}
	v.missing++
	s.stats.Insertions++
	log.Debugf("%s: inserted missing %s at byte %d", s.lang.Name(), s.lang.SymbolName(sym), pos.Bytes)
}
