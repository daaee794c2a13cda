package parser

import (
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
)

// stackEntry is a node of a persistent stack. Versions share their common
// prefix; pushing never modifies an existing entry.
type stackEntry struct {
	state grammar.StateID
	tree  *syntax.Subtree
	// pos is the position right after tree.
	pos  source.Length
	prev *stackEntry
}

func (e *stackEntry) push(state grammar.StateID, tree *syntax.Subtree, pos source.Length) *stackEntry {
	return &stackEntry{state: state, tree: tree, pos: pos, prev: e}
}

// markFragile copies the topmost non-extra tree and the extras above it as
// fragile, extending their lookahead up to the absolute byte reach.
func (e *stackEntry) markFragile(reach int) *stackEntry {
	if e == nil || e.tree == nil {
		return e
	}
	prev := e.prev
	if e.tree.IsExtra() {
		prev = prev.markFragile(reach)
	}
	return prev.push(e.state, e.tree.AsFragile(reach-e.pos.Bytes), e.pos)
}

// trees returns the subtrees on the stack, bottom first.
func (e *stackEntry) trees() []*syntax.Subtree {
	var out []*syntax.Subtree
	for ; e != nil && e.tree != nil; e = e.prev {
		out = append(out, e.tree)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// lookahead is the token a version is about to act on.
type lookahead struct {
	tok lexer.Token
	// missing marks a token inserted by error recovery.
	missing bool
	// reuse is a subtree of the previous tree standing in for tok: a leaf to
	// shift as is, or a node to push once the stack reaches its parse state.
	reuse *syntax.Subtree
	// next is the token to continue with after this one is shifted.
	next *lookahead
}

type version struct {
	id    int
	stack *stackEntry
	la    *lookahead
	// lexIn is the state the next token is lexed in.
	lexIn grammar.StateID
	blob  []byte
	// decisions records, for every fork this version went through, the
	// index of the action it took.
	decisions []int
	// shifted counts tokens shifted since the last fork.
	shifted   int
	missing   int
	missingAt int
	root      *syntax.Subtree
}

func (v *version) pos() source.Length {
	return v.stack.pos
}

func (v *version) top() grammar.StateID {
	return v.stack.state
}

func (v *version) clone(id int) *version {
	c := *v
	c.id = id
	c.decisions = append([]int(nil), v.decisions...)
	return &c
}

// prefer orders versions by their first differing fork decision, then by
// creation.
func prefer(a, b *version) int {
	for i := 0; i < len(a.decisions) && i < len(b.decisions); i++ {
		if a.decisions[i] != b.decisions[i] {
			return a.decisions[i] - b.decisions[i]
		}
	}
	return a.id - b.id
}

// virtualStack replays actions on states only, to test what a token would do
// without building trees.
type virtualStack struct {
	lang   *grammar.Descriptor
	base   *stackEntry
	pushed []grammar.StateID
}

func (vs *virtualStack) top() grammar.StateID {
	if n := len(vs.pushed); n > 0 {
		return vs.pushed[n-1]
	}
	return vs.base.state
}

func (vs *virtualStack) pop(n int) bool {
	for n > 0 {
		if k := len(vs.pushed); k > 0 {
			vs.pushed = vs.pushed[:k-1]
			n--
			continue
		}
		if vs.base.tree == nil {
			return false
		}
		if !vs.base.tree.IsExtra() {
			n--
		}
		vs.base = vs.base.prev
	}
	return true
}

func (vs *virtualStack) reduce(rule int) bool {
	r := vs.lang.Rule(rule)
	if !vs.pop(r.Arity()) {
		return false
	}
	next, ok := vs.lang.Goto(vs.top(), r.LHS)
	if !ok {
		return false
	}
	vs.pushed = append(vs.pushed, next)
	return true
}

const maxVirtualSteps = 256

// advance applies the preferred actions for sym until it is shifted or
// accepted, and reports whether that happened.
func (vs *virtualStack) advance(sym grammar.Symbol) bool {
	if sym == grammar.SymbolError {
		return false
	}
	for i := 0; i < maxVirtualSteps; i++ {
		acts := vs.lang.Actions(vs.top(), sym)
		if len(acts) == 0 {
			return false
		}
		switch a := acts[0]; a.Kind {
		case grammar.ActionShift:
			vs.pushed = append(vs.pushed, a.State)
			return true
		case grammar.ActionAccept:
			return true
		case grammar.ActionReduce:
			if !vs.reduce(a.Rule) {
				return false
			}
		}
	}
	return false
}
