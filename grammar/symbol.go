// Package grammar holds the compiled, immutable description of a language:
// its symbols, parse states and actions, rules, precedence, and the lexical
// automaton used to recognize tokens. A Descriptor is safe for concurrent use
// by any number of parse sessions.
package grammar

import (
	"fmt"
	"math"
)

// Symbol identifies a terminal or nonterminal.
type Symbol uint16

// StateID identifies a parse state.
type StateID uint16

const (
	// SymbolEnd marks the end of input.
	SymbolEnd Symbol = 0
	// SymbolError labels error nodes and unrecognizable input.
	SymbolError Symbol = math.MaxUint16

	// NoState is returned when a goto is missing.
	NoState StateID = math.MaxUint16
)

type SymbolKind int

const (
	KindTerminal SymbolKind = iota
	KindNonterminal
	KindExternal
)

var symbolKindNames = map[SymbolKind]string{
	KindTerminal:    "terminal",
	KindNonterminal: "nonterminal",
	KindExternal:    "external",
}

func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k SymbolKind) MarshalText() ([]byte, error) {
	name, ok := symbolKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown symbol kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *SymbolKind) UnmarshalText(text []byte) error {
	for kind, name := range symbolKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown symbol kind %q", text)
}

// Assoc is the associativity attached to a precedence level.
type Assoc int

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
	AssocNonassoc
)

var assocNames = map[Assoc]string{
	AssocNone:     "none",
	AssocLeft:     "left",
	AssocRight:    "right",
	AssocNonassoc: "nonassoc",
}

func (a Assoc) String() string {
	if name, ok := assocNames[a]; ok {
		return name
	}
	return "unknown"
}

func (a Assoc) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Assoc) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = AssocNone
		return nil
	}
	for assoc, name := range assocNames {
		if name == string(text) {
			*a = assoc
			return nil
		}
	}
	return fmt.Errorf("unknown associativity %q", text)
}

// Precedence is a level in the precedence table. Higher levels bind tighter.
type Precedence struct {
	Level int   `yaml:"level" json:"level"`
	Assoc Assoc `yaml:"assoc,omitempty" json:"assoc,omitempty"`
}

// SymbolInfo describes a symbol.
//
// Named symbols appear as named nodes; anonymous ones are literal tokens such
// as "+". Hidden nonterminals never appear in trees: their children are
// spliced into the parent. Extra terminals may appear between any two tokens
// and are kept in the tree. Skip terminals are whitespace: they are consumed
// by the lexer and counted as padding of the following token.
type SymbolInfo struct {
	Name   string      `yaml:"name" json:"name"`
	Kind   SymbolKind  `yaml:"kind" json:"kind"`
	Named  bool        `yaml:"named,omitempty" json:"named,omitempty"`
	Hidden bool        `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Extra  bool        `yaml:"extra,omitempty" json:"extra,omitempty"`
	Skip   bool        `yaml:"skip,omitempty" json:"skip,omitempty"`
	Prec   *Precedence `yaml:"prec,omitempty" json:"prec,omitempty"`
}

func (s SymbolInfo) IsTerminal() bool {
	return s.Kind != KindNonterminal
}

// Rule is a production LHS -> RHS.
type Rule struct {
	LHS  Symbol      `yaml:"lhs" json:"lhs"`
	RHS  []Symbol    `yaml:"rhs,flow" json:"rhs"`
	Prec *Precedence `yaml:"prec,omitempty" json:"prec,omitempty"`
}

func (r Rule) Arity() int {
	return len(r.RHS)
}
