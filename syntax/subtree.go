// Package syntax holds concrete syntax trees.
//
// Trees are persistent. A Subtree stores only relative lengths, its padding
// (the whitespace before it) and its size, so an edit shifts the subtrees after
// it without touching them. Editing a tree copies only the subtrees whose
// extent overlaps the edit; everything else is shared with the previous
// version. Subtrees have no parent pointers: Node.Parent searches from the
// root instead.
package syntax

import (
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/source"
)

type flags uint8

const (
	flagMissing flags = 1 << iota
	flagExtra
	flagHasError
	flagFragile
	flagChanged
	flagExternal
	flagVisible
	flagNamed
)

// Subtree is an immutable tree node with relative extent and the metadata
// the parser needs to decide whether it can be reused after an edit.
type Subtree struct {
	symbol   grammar.Symbol
	padding  source.Length
	size     source.Length
	children []*Subtree
	flags    flags

	// visibleCount is the number of visible nodes directly below this one,
	// counting through hidden children.
	visibleCount int

	parseState   grammar.StateID
	lexState     grammar.StateID
	nextLexState grammar.StateID
	lookahead    int
	before       []byte
	after        []byte
}

// LeafInfo is the lexical context of a token.
type LeafInfo struct {
	// ParseState is the state the leaf was shifted in.
	ParseState grammar.StateID
	// LexState is the state the token was lexed in.
	LexState grammar.StateID
	// NextLexState is the state the token after this one was lexed in.
	NextLexState grammar.StateID
	// Lookahead counts the bytes examined past the token's end.
	Lookahead     int
	External      bool
	ScannerBefore []byte
	ScannerAfter  []byte
}

func symbolFlags(lang *grammar.Descriptor, sym grammar.Symbol) flags {
	info := lang.Symbol(sym)
	var f flags
	if sym == grammar.SymbolError || !info.Hidden {
		f |= flagVisible
	}
	if sym == grammar.SymbolError || info.Named {
		f |= flagNamed
	}
	return f
}

func NewLeaf(lang *grammar.Descriptor, sym grammar.Symbol, padding, size source.Length, info LeafInfo) *Subtree {
	st := &Subtree{
		symbol:       sym,
		padding:      padding,
		size:         size,
		flags:        symbolFlags(lang, sym),
		parseState:   info.ParseState,
		lexState:     info.LexState,
		nextLexState: info.NextLexState,
		lookahead:    info.Lookahead,
		before:       info.ScannerBefore,
		after:        info.ScannerAfter,
	}
	if info.External {
		st.flags |= flagExternal
	}
	if sym == grammar.SymbolError {
		st.flags |= flagHasError
	}
	return st
}

// NewMissing returns a zero-width leaf for a token the parser inserted.
func NewMissing(lang *grammar.Descriptor, sym grammar.Symbol, parseState grammar.StateID, blob []byte) *Subtree {
	return &Subtree{
		symbol:       sym,
		flags:        symbolFlags(lang, sym) | flagMissing | flagHasError,
		parseState:   parseState,
		lexState:     grammar.NoState,
		nextLexState: grammar.NoState,
		before:       blob,
		after:        blob,
	}
}

// NodeInfo is the context of a reduction.
type NodeInfo struct {
	// ParseState is the state below the node on the stack.
	ParseState grammar.StateID
	// Lookahead is the minimum number of bytes past the node's end that the
	// reduction depended on.
	Lookahead int
	Fragile   bool
}

// NewNode builds an internal node over children. Its extent runs from the
// first child's padding to the last child's end. children must not be empty.
func NewNode(lang *grammar.Descriptor, sym grammar.Symbol, children []*Subtree, info NodeInfo) *Subtree {
	st := &Subtree{
		symbol:     sym,
		children:   children,
		flags:      symbolFlags(lang, sym),
		parseState: info.ParseState,
		lookahead:  info.Lookahead,
	}
	st.summarize()
	if info.Fragile {
		st.flags |= flagFragile
	}
	if sym == grammar.SymbolError {
		st.flags |= flagHasError
	}
	return st
}

// NewError wraps skipped input in an ERROR node.
func NewError(lang *grammar.Descriptor, children []*Subtree, info NodeInfo) *Subtree {
	return NewNode(lang, grammar.SymbolError, children, info)
}

// summarize derives extent, flags and reuse metadata from the children.
func (st *Subtree) summarize() {
	if len(st.children) == 0 {
		st.lexState, st.nextLexState = grammar.NoState, grammar.NoState
		return
	}
	first, last := st.children[0], st.children[len(st.children)-1]
	st.padding = first.padding
	total := source.Length{}
	for _, c := range st.children {
		total = total.Add(c.padding).Add(c.size)
		if c.flags&flagHasError != 0 {
			st.flags |= flagHasError
		}
		if c.flags&flagFragile != 0 {
			st.flags |= flagFragile
		}
		if c.flags&flagVisible != 0 {
			st.visibleCount++
		} else {
			st.visibleCount += c.visibleCount
		}
	}
	st.size = total.Sub(first.padding)

	st.lexState = first.lexState
	st.before = first.before
	st.nextLexState = last.nextLexState
	st.after = last.after

	dist := 0
	for i := len(st.children) - 1; i >= 0; i-- {
		c := st.children[i]
		st.lookahead = max(st.lookahead, c.lookahead-dist)
		dist += c.padding.Bytes + c.size.Bytes
	}
}

func (st *Subtree) Symbol() grammar.Symbol      { return st.symbol }
func (st *Subtree) Padding() source.Length      { return st.padding }
func (st *Subtree) Size() source.Length         { return st.size }
func (st *Subtree) Total() source.Length        { return st.padding.Add(st.size) }
func (st *Subtree) Children() []*Subtree        { return st.children }
func (st *Subtree) IsLeaf() bool                { return len(st.children) == 0 }
func (st *Subtree) IsMissing() bool             { return st.flags&flagMissing != 0 }
func (st *Subtree) IsExtra() bool               { return st.flags&flagExtra != 0 }
func (st *Subtree) IsExternal() bool            { return st.flags&flagExternal != 0 }
func (st *Subtree) HasError() bool              { return st.flags&flagHasError != 0 }
func (st *Subtree) IsFragile() bool             { return st.flags&flagFragile != 0 }
func (st *Subtree) IsChanged() bool             { return st.flags&flagChanged != 0 }
func (st *Subtree) IsVisible() bool             { return st.flags&flagVisible != 0 }
func (st *Subtree) ParseState() grammar.StateID { return st.parseState }
func (st *Subtree) LexState() grammar.StateID   { return st.lexState }
func (st *Subtree) Lookahead() int              { return st.lookahead }
func (st *Subtree) ScannerBefore() []byte       { return st.before }
func (st *Subtree) ScannerAfter() []byte        { return st.after }

// NextLexState is the parse state in which the token following the subtree
// was lexed.
func (st *Subtree) NextLexState() grammar.StateID { return st.nextLexState }

// AsExtra returns a copy of st flagged as extra.
func (st *Subtree) AsExtra() *Subtree {
	if st.IsExtra() {
		return st
	}
	c := *st
	c.flags |= flagExtra
	return &c
}

// AsFragile returns a copy of st that is never reused, looking at least
// lookahead bytes past its end.
func (st *Subtree) AsFragile(lookahead int) *Subtree {
	c := *st
	c.flags |= flagFragile
	c.lookahead = max(c.lookahead, lookahead)
	return &c
}

// NewRoot builds the root node. Its extent is forced to [0, total) whatever
// the padding of its first child and the whitespace after its last one.
func NewRoot(lang *grammar.Descriptor, sym grammar.Symbol, children []*Subtree, total source.Length, info NodeInfo) *Subtree {
	st := NewNode(lang, sym, children, info)
	st.flags |= flagVisible
	covered := st.padding.Add(st.size)
	st.padding = source.Length{}
	st.size = total
	st.lookahead = max(st.lookahead-(total.Bytes-covered.Bytes), 1)
	return st
}
