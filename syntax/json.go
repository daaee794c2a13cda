package syntax

import (
	"encoding/json"
	"fmt"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/source"
)

type jsonNode struct {
	Type     string       `json:"type"`
	Named    bool         `json:"named,omitempty"`
	Range    source.Range `json:"range"`
	Error    bool         `json:"error,omitempty"`
	Missing  bool         `json:"missing,omitempty"`
	Extra    bool         `json:"extra,omitempty"`
	Children []*jsonNode  `json:"children,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n Node) toJSON() *jsonNode {
	jn := &jsonNode{
		Type:    n.Type(),
		Named:   n.IsNamed(),
		Range:   n.Range(),
		Error:   n.IsError(),
		Missing: n.IsMissing(),
		Extra:   n.IsExtra(),
	}
	for _, c := range n.Children() {
		jn.Children = append(jn.Children, c.toJSON())
	}
	return jn
}

// wireSubtree is the persisted form of a subtree, reuse metadata included.
type wireSubtree struct {
	Symbol       grammar.Symbol  `json:"s"`
	Padding      source.Length   `json:"p"`
	Size         source.Length   `json:"z"`
	Flags        flags           `json:"f,omitempty"`
	ParseState   grammar.StateID `json:"ps"`
	LexState     grammar.StateID `json:"ls"`
	NextLexState grammar.StateID `json:"nls"`
	Lookahead    int             `json:"la,omitempty"`
	Before       []byte          `json:"sb,omitempty"`
	After        []byte          `json:"sa,omitempty"`
	Children     []*wireSubtree  `json:"c,omitempty"`
}

type wireTree struct {
	Language   string       `json:"language"`
	Incomplete bool         `json:"incomplete,omitempty"`
	Root       *wireSubtree `json:"root"`
}

// MarshalTree encodes t so that UnmarshalTree can restore it, with enough
// metadata for an incremental parse to reuse its subtrees.
func MarshalTree(t *Tree) ([]byte, error) {
	return json.Marshal(wireTree{
		Language:   t.lang.Name(),
		Incomplete: t.incomplete,
		Root:       toWire(t.root),
	})
}

func toWire(st *Subtree) *wireSubtree {
	w := &wireSubtree{
		Symbol:       st.symbol,
		Padding:      st.padding,
		Size:         st.size,
		Flags:        st.flags &^ (flagVisible | flagNamed),
		ParseState:   st.parseState,
		LexState:     st.lexState,
		NextLexState: st.nextLexState,
		Lookahead:    st.lookahead,
		Before:       st.before,
		After:        st.after,
	}
	for _, c := range st.children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}

func UnmarshalTree(data []byte, lang *grammar.Descriptor) (*Tree, error) {
	var w wireTree
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if w.Language != lang.Name() {
		return nil, fmt.Errorf("tree was parsed with %q, not %q", w.Language, lang.Name())
	}
	if w.Root == nil {
		return nil, fmt.Errorf("decode tree: no root")
	}
	root, err := fromWire(w.Root, lang)
	if err != nil {
		return nil, err
	}
	root.flags |= flagVisible
	return &Tree{lang: lang, root: root, incomplete: w.Incomplete}, nil
}

func fromWire(w *wireSubtree, lang *grammar.Descriptor) (*Subtree, error) {
	if w.Symbol != grammar.SymbolError && int(w.Symbol) >= lang.SymbolCount() {
		return nil, fmt.Errorf("decode tree: unknown symbol %d", w.Symbol)
	}
	st := &Subtree{
		symbol:       w.Symbol,
		padding:      w.Padding,
		size:         w.Size,
		flags:        w.Flags&^(flagVisible|flagNamed) | symbolFlags(lang, w.Symbol),
		parseState:   w.ParseState,
		lexState:     w.LexState,
		nextLexState: w.NextLexState,
		lookahead:    w.Lookahead,
		before:       w.Before,
		after:        w.After,
	}
	for _, wc := range w.Children {
		c, err := fromWire(wc, lang)
		if err != nil {
			return nil, err
		}
		st.children = append(st.children, c)
		if c.flags&flagVisible != 0 {
			st.visibleCount++
		} else {
			st.visibleCount += c.visibleCount
		}
	}
	return st, nil
}
