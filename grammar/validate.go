package grammar

import (
	"math"

	"github.com/dhamidi/sitter/scanner"
)

// MaxScannerStateSize bounds the size of any external scanner state blob.
const MaxScannerStateSize = 1024

func validate(t *Table, s scanner.Scanner) (tokenCount int, err error) {
	if len(t.Symbols) == 0 {
		return 0, invalid(t, "no symbols")
	}
	if len(t.Symbols) >= math.MaxUint16 {
		return 0, invalid(t, "%d symbols exceed the symbol id space", len(t.Symbols))
	}
	if t.Symbols[0].Kind != KindTerminal {
		return 0, invalid(t, "symbol 0 must be the end-of-input terminal")
	}

	tokenCount = len(t.Symbols)
	for i, sym := range t.Symbols {
		if sym.Kind == KindNonterminal {
			tokenCount = i
			break
		}
	}
	for i := tokenCount; i < len(t.Symbols); i++ {
		if t.Symbols[i].Kind != KindNonterminal {
			return 0, invalid(t, "terminal %q (%d) follows the first nonterminal", t.Symbols[i].Name, i)
		}
	}
	if tokenCount == len(t.Symbols) {
		return 0, invalid(t, "no nonterminals")
	}
	isTerminal := func(sym Symbol) bool { return int(sym) < tokenCount }
	isNonterminal := func(sym Symbol) bool { return int(sym) >= tokenCount && int(sym) < len(t.Symbols) }

	if len(t.Rules) == 0 {
		return 0, invalid(t, "no rules")
	}
	for i, r := range t.Rules {
		if !isNonterminal(r.LHS) {
			return 0, invalid(t, "rule %d: left-hand side %d is not a nonterminal", i, r.LHS)
		}
		for _, sym := range r.RHS {
			if int(sym) >= len(t.Symbols) {
				return 0, invalid(t, "rule %d: unknown symbol %d", i, sym)
			}
		}
	}

	if len(t.Lex) == 0 {
		return 0, invalid(t, "no lexical states")
	}
	for i, ls := range t.Lex {
		for j, tr := range ls.Transitions {
			if tr.Lo > tr.Hi || tr.Next < 0 || tr.Next >= len(t.Lex) {
				return 0, invalid(t, "lex state %d: bad transition %d", i, j)
			}
			if j > 0 && ls.Transitions[j-1].Hi >= tr.Lo {
				return 0, invalid(t, "lex state %d: transitions overlap or are unsorted", i)
			}
		}
		for _, sym := range ls.Accept {
			if !isTerminal(sym) || t.Symbols[sym].Kind == KindExternal {
				return 0, invalid(t, "lex state %d: accepts non-lexical symbol %d", i, sym)
			}
		}
	}

	if len(t.States) == 0 {
		return 0, invalid(t, "no parse states")
	}
	if len(t.States) >= math.MaxUint16 {
		return 0, invalid(t, "%d states exceed the state id space", len(t.States))
	}
	if int(t.Start) >= len(t.States) {
		return 0, invalid(t, "start state %d out of range", t.Start)
	}
	for i, row := range t.States {
		if row.Lex < 0 || row.Lex >= len(t.Lex) {
			return 0, invalid(t, "state %d: lex state %d out of range", i, row.Lex)
		}
		seen := make(map[Symbol]bool, len(row.Actions))
		for _, e := range row.Actions {
			if !isTerminal(e.Symbol) {
				return 0, invalid(t, "state %d: action on non-terminal %d", i, e.Symbol)
			}
			if seen[e.Symbol] {
				return 0, invalid(t, "state %d: duplicate entry for symbol %d", i, e.Symbol)
			}
			seen[e.Symbol] = true
			if len(e.Actions) == 0 {
				return 0, invalid(t, "state %d: empty entry for symbol %d", i, e.Symbol)
			}
			for _, a := range e.Actions {
				switch a.Kind {
				case ActionShift:
					if int(a.State) >= len(t.States) {
						return 0, invalid(t, "state %d: shift to unknown state %d", i, a.State)
					}
				case ActionReduce:
					if a.Rule < 0 || a.Rule >= len(t.Rules) {
						return 0, invalid(t, "state %d: reduce by unknown rule %d", i, a.Rule)
					}
				case ActionAccept:
					if e.Symbol != SymbolEnd {
						return 0, invalid(t, "state %d: accept on symbol %d", i, e.Symbol)
					}
				default:
					return 0, invalid(t, "state %d: explicit %s action", i, a.Kind)
				}
			}
		}
		for _, g := range row.Gotos {
			if !isNonterminal(g.Symbol) {
				return 0, invalid(t, "state %d: goto on terminal %d", i, g.Symbol)
			}
			if int(g.State) >= len(t.States) {
				return 0, invalid(t, "state %d: goto to unknown state %d", i, g.State)
			}
		}
	}

	declared := 0
	for _, sym := range t.Symbols {
		if sym.Kind == KindExternal {
			declared++
		}
	}
	if declared != len(t.Externals) {
		return 0, invalid(t, "%d external symbols but %d listed externals", declared, len(t.Externals))
	}
	listed := make(map[Symbol]bool, len(t.Externals))
	for _, sym := range t.Externals {
		if !isTerminal(sym) || t.Symbols[sym].Kind != KindExternal || listed[sym] {
			return 0, invalid(t, "bad external symbol %d", sym)
		}
		listed[sym] = true
	}
	switch {
	case len(t.Externals) > 0 && s == nil:
		return 0, invalid(t, "external tokens declared but no scanner supplied")
	case len(t.Externals) == 0 && s != nil:
		return 0, invalid(t, "scanner supplied for a grammar without external tokens")
	case len(t.Externals) > 0 && (t.ScannerStateSize <= 0 || t.ScannerStateSize > MaxScannerStateSize):
		return 0, invalid(t, "scanner state size %d outside 1..%d", t.ScannerStateSize, MaxScannerStateSize)
	}

	return tokenCount, nil
}
