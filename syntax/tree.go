package syntax

import (
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/source"
)

type Tree struct {
	lang       *grammar.Descriptor
	root       *Subtree
	incomplete bool
}

func NewTree(lang *grammar.Descriptor, root *Subtree, incomplete bool) *Tree {
	return &Tree{lang: lang, root: root, incomplete: incomplete}
}

func (t *Tree) Language() *grammar.Descriptor {
	return t.lang
}

func (t *Tree) RootSubtree() *Subtree {
	return t.root
}

func (t *Tree) Root() Node {
	return Node{tree: t, st: t.root}
}

// Incomplete reports whether the parse that built t was cancelled before it
// consumed the whole input.
func (t *Tree) Incomplete() bool {
	return t.incomplete
}

func (t *Tree) String() string {
	return t.Root().String()
}

// Edit returns a tree adjusted to an edit of its text. Subtrees whose extent,
// including the bytes their tokens looked ahead at, touches the edited range
// are copied, moved to the new coordinates and marked as changed; all others
// are shared with t.
func (t *Tree) Edit(e source.Edit) *Tree {
	root := *t.root
	root.flags |= flagChanged
	end := e.Map(t.root.size, true)
	root.size = end
	if len(t.root.children) > 0 {
		root.children = editChildren(t.root.children, source.Length{}, e)
	}
	return &Tree{lang: t.lang, root: &root, incomplete: t.incomplete}
}

func editChildren(children []*Subtree, pos source.Length, e source.Edit) []*Subtree {
	out := children
	copied := false
	for i, c := range children {
		next := pos.Add(c.padding).Add(c.size)
		if edited := editSubtree(c, pos, e); edited != c {
			if !copied {
				out = append([]*Subtree(nil), children...)
				copied = true
			}
			out[i] = edited
		}
		pos = next
	}
	return out
}

func touches(st *Subtree, padStart source.Length, e source.Edit) bool {
	end := padStart.Bytes + st.padding.Bytes + st.size.Bytes + st.lookahead
	editEnd := max(e.OldEndByte, e.StartByte+1)
	return padStart.Bytes < editEnd && e.StartByte < end
}

func editSubtree(st *Subtree, padStart source.Length, e source.Edit) *Subtree {
	if !touches(st, padStart, e) {
		return st
	}
	start := padStart.Add(st.padding)
	end := start.Add(st.size)

	c := *st
	c.flags |= flagChanged
	newPad := e.Map(padStart, false)
	newStart := e.Map(start, false)
	newEnd := e.Map(end, false)
	c.padding = newStart.Sub(newPad)
	c.size = newEnd.Sub(newStart)
	if len(st.children) > 0 {
		c.children = editChildren(st.children, padStart, e)
	}
	return &c
}

// Equal reports whether t and o have the same visible structure: symbols,
// ranges, flags and children.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	return equalNodes(t.Root(), o.Root())
}

func equalNodes(a, b Node) bool {
	if a.st == b.st && a.pos == b.pos {
		return true
	}
	if a.Symbol() != b.Symbol() || a.Range() != b.Range() ||
		a.IsMissing() != b.IsMissing() || a.IsExtra() != b.IsExtra() || a.HasError() != b.HasError() {
		return false
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !equalNodes(ac[i], bc[i]) {
			return false
		}
	}
	return true
}
