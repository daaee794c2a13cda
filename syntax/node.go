package syntax

import (
	"strconv"
	"strings"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/source"
)

// Node is a subtree placed in a tree. Hidden nodes never surface as Nodes:
// their children appear in their place.
type Node struct {
	tree *Tree
	st   *Subtree
	// pos is where the node's padding starts.
	pos source.Length
}

func (n Node) IsZero() bool {
	return n.st == nil
}

func (n Node) Tree() *Tree {
	return n.tree
}

// Subtree returns the node's underlying subtree.
func (n Node) Subtree() *Subtree {
	return n.st
}

func (n Node) Symbol() grammar.Symbol {
	return n.st.symbol
}

func (n Node) Type() string {
	return n.tree.lang.SymbolName(n.st.symbol)
}

func (n Node) start() source.Length {
	return n.pos.Add(n.st.padding)
}

func (n Node) end() source.Length {
	return n.start().Add(n.st.size)
}

func (n Node) StartByte() int           { return n.start().Bytes }
func (n Node) EndByte() int             { return n.end().Bytes }
func (n Node) StartPoint() source.Point { return n.start().Extent }
func (n Node) EndPoint() source.Point   { return n.end().Extent }

func (n Node) Range() source.Range {
	start, end := n.start(), n.end()
	return source.Range{StartByte: start.Bytes, EndByte: end.Bytes, StartPoint: start.Extent, EndPoint: end.Extent}
}

func (n Node) IsError() bool   { return n.st.symbol == grammar.SymbolError }
func (n Node) IsMissing() bool { return n.st.IsMissing() }
func (n Node) IsExtra() bool   { return n.st.IsExtra() }
func (n Node) IsNamed() bool   { return n.st.flags&flagNamed != 0 }
func (n Node) HasError() bool  { return n.st.HasError() }

// Content returns the node's text within src, the text it was parsed from.
func (n Node) Content(src []byte) string {
	start, end := min(n.StartByte(), len(src)), min(n.EndByte(), len(src))
	return string(src[start:end])
}

func (n Node) ChildCount() int {
	return n.st.visibleCount
}

// Children returns the visible children in order.
func (n Node) Children() []Node {
	out := make([]Node, 0, n.st.visibleCount)
	n.appendChildren(n.st, n.pos, &out)
	return out
}

func (n Node) appendChildren(st *Subtree, pos source.Length, out *[]Node) {
	for _, c := range st.children {
		if c.flags&flagVisible != 0 {
			*out = append(*out, Node{tree: n.tree, st: c, pos: pos})
		} else {
			n.appendChildren(c, pos, out)
		}
		pos = pos.Add(c.padding).Add(c.size)
	}
}

// Child returns the i-th visible child, or the zero Node.
func (n Node) Child(i int) Node {
	if i < 0 || i >= n.st.visibleCount {
		return Node{}
	}
	return n.Children()[i]
}

func (n Node) NamedChildren() []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.IsNamed() {
			out = append(out, c)
		}
	}
	return out
}

// Parent finds the node's parent by descending from the root.
func (n Node) Parent() (Node, bool) {
	if n.st == n.tree.root {
		return Node{}, false
	}
	return findParent(n.tree.Root(), n)
}

func findParent(cur, target Node) (Node, bool) {
	for _, c := range cur.Children() {
		if c.st == target.st && c.pos == target.pos {
			return cur, true
		}
		if c.StartByte() <= target.StartByte() && target.EndByte() <= c.EndByte() {
			if p, ok := findParent(c, target); ok {
				return p, true
			}
		}
	}
	return Node{}, false
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the node it was called with.
func (n Node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// String renders the node as an S-expression: named nodes in parentheses,
// anonymous ones quoted.
func (n Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n Node) write(b *strings.Builder) {
	name := n.Type()
	if !n.IsNamed() {
		name = strconv.Quote(name)
	}
	if n.IsMissing() {
		b.WriteString("(MISSING ")
		b.WriteString(name)
		b.WriteByte(')')
		return
	}
	if !n.IsNamed() {
		b.WriteString(name)
		return
	}
	b.WriteByte('(')
	b.WriteString(name)
	for _, c := range n.Children() {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}
