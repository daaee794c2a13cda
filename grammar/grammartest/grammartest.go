// Package grammartest provides small hand-built tables for tests.
package grammartest

import "github.com/dhamidi/sitter/grammar"

const (
	End   grammar.Symbol = 0
	Ident grammar.Symbol = 1
	Plus  grammar.Symbol = 2
	Space grammar.Symbol = 3
	Expr  grammar.Symbol = 4
)

// Arith is the table of
//
//	expr = expr "+" expr | IDENT .
//
// with blanks skipped. Without precedence, state 4 keeps a shift/reduce
// conflict on "+"; with leftAssoc the conflict resolves to a reduction.
func Arith(leftAssoc bool) grammar.Table {
	var prec *grammar.Precedence
	if leftAssoc {
		prec = &grammar.Precedence{Level: 1, Assoc: grammar.AssocLeft}
	}
	shift := func(to grammar.StateID, rule int) grammar.Action {
		return grammar.Action{Kind: grammar.ActionShift, State: to, Rule: rule}
	}
	reduce := func(rule int) grammar.Action {
		return grammar.Action{Kind: grammar.ActionReduce, Rule: rule}
	}
	entry := func(sym grammar.Symbol, acts ...grammar.Action) grammar.ActionEntry {
		return grammar.ActionEntry{Symbol: sym, Actions: acts}
	}

	return grammar.Table{
		Name: "arith",
		Symbols: []grammar.SymbolInfo{
			{Name: "end", Kind: grammar.KindTerminal},
			{Name: "IDENT", Kind: grammar.KindTerminal, Named: true},
			{Name: "+", Kind: grammar.KindTerminal, Prec: prec},
			{Name: "_blank", Kind: grammar.KindTerminal, Skip: true},
			{Name: "expr", Kind: grammar.KindNonterminal, Named: true},
		},
		Rules: []grammar.Rule{
			{LHS: Expr, RHS: []grammar.Symbol{Expr, Plus, Expr}, Prec: prec},
			{LHS: Expr, RHS: []grammar.Symbol{Ident}},
		},
		States: []grammar.StateRow{
			{
				Actions: []grammar.ActionEntry{entry(Ident, shift(2, 1))},
				Gotos:   []grammar.GotoEntry{{Symbol: Expr, State: 1}},
			},
			{
				Actions: []grammar.ActionEntry{
					entry(End, grammar.Action{Kind: grammar.ActionAccept}),
					entry(Plus, shift(3, 0)),
				},
			},
			{
				Actions: []grammar.ActionEntry{entry(End, reduce(1)), entry(Plus, reduce(1))},
			},
			{
				Actions: []grammar.ActionEntry{entry(Ident, shift(2, 1))},
				Gotos:   []grammar.GotoEntry{{Symbol: Expr, State: 4}},
			},
			{
				Actions: []grammar.ActionEntry{
					entry(End, reduce(0)),
					entry(Plus, reduce(0), shift(3, 0)),
				},
			},
		},
		Lex: []grammar.LexState{
			{Transitions: []grammar.LexTransition{
				{Lo: ' ', Hi: ' ', Next: 3},
				{Lo: '+', Hi: '+', Next: 2},
				{Lo: 'a', Hi: 'z', Next: 1},
			}},
			{Accept: []grammar.Symbol{Ident}, Transitions: []grammar.LexTransition{{Lo: 'a', Hi: 'z', Next: 1}}},
			{Accept: []grammar.Symbol{Plus}},
			{Accept: []grammar.Symbol{Space}, Transitions: []grammar.LexTransition{{Lo: ' ', Hi: ' ', Next: 3}}},
		},
	}
}
