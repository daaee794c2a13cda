package gen

import (
	"fmt"
	"regexp/syntax"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dhamidi/sitter/grammar"
)

type nfaEdge struct {
	lo, hi byte
	to     int
}

type nfaState struct {
	eps    []int
	edges  []nfaEdge
	accept int
}

// nfa is a byte-level Thompson automaton. Each lexical symbol contributes one
// fragment reachable from state 0.
type nfa struct {
	states []nfaState
}

func newNFA() *nfa {
	n := &nfa{}
	n.add()
	return n
}

func (n *nfa) add() int {
	n.states = append(n.states, nfaState{accept: -1})
	return len(n.states) - 1
}

func (n *nfa) eps(from, to int) {
	n.states[from].eps = append(n.states[from].eps, to)
}

func (n *nfa) edge(from int, lo, hi byte, to int) {
	n.states[from].edges = append(n.states[from].edges, nfaEdge{lo, hi, to})
}

// addLiteral adds a fragment matching text exactly.
func (n *nfa) addLiteral(text string, sym grammar.Symbol) {
	cur := n.add()
	n.eps(0, cur)
	for i := 0; i < len(text); i++ {
		next := n.add()
		n.edge(cur, text[i], text[i], next)
		cur = next
	}
	n.states[cur].accept = int(sym)
}

// addPattern adds a fragment for a regular expression.
func (n *nfa) addPattern(pattern string, sym grammar.Symbol) error {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return err
	}
	in, out, err := n.compile(re.Simplify())
	if err != nil {
		return err
	}
	n.eps(0, in)
	n.states[out].accept = int(sym)
	return nil
}

func (n *nfa) compile(re *syntax.Regexp) (in, out int, err error) {
	switch re.Op {
	case syntax.OpNoMatch:
		return n.add(), n.add(), nil

	case syntax.OpEmptyMatch:
		in, out = n.add(), n.add()
		n.eps(in, out)
		return in, out, nil

	case syntax.OpLiteral:
		in = n.add()
		cur := in
		fold := re.Flags&syntax.FoldCase != 0
		for _, r := range re.Rune {
			next := n.add()
			n.runeEdge(cur, r, next, fold)
			cur = next
		}
		return in, cur, nil

	case syntax.OpCharClass:
		in, out = n.add(), n.add()
		n.class(in, re.Rune, out)
		return in, out, nil

	case syntax.OpAnyCharNotNL:
		in, out = n.add(), n.add()
		n.class(in, []rune{0, '\n' - 1, '\n' + 1, utf8.MaxRune}, out)
		return in, out, nil

	case syntax.OpAnyChar:
		in, out = n.add(), n.add()
		n.class(in, []rune{0, utf8.MaxRune}, out)
		return in, out, nil

	case syntax.OpCapture:
		return n.compile(re.Sub[0])

	case syntax.OpConcat:
		in = n.add()
		cur := in
		for _, sub := range re.Sub {
			sin, sout, err := n.compile(sub)
			if err != nil {
				return 0, 0, err
			}
			n.eps(cur, sin)
			cur = sout
		}
		return in, cur, nil

	case syntax.OpAlternate:
		in, out = n.add(), n.add()
		for _, sub := range re.Sub {
			sin, sout, err := n.compile(sub)
			if err != nil {
				return 0, 0, err
			}
			n.eps(in, sin)
			n.eps(sout, out)
		}
		return in, out, nil

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		sin, sout, err := n.compile(re.Sub[0])
		if err != nil {
			return 0, 0, err
		}
		in, out = n.add(), n.add()
		n.eps(in, sin)
		n.eps(sout, out)
		if re.Op != syntax.OpPlus {
			n.eps(in, out)
		}
		if re.Op != syntax.OpQuest {
			n.eps(sout, sin)
		}
		return in, out, nil
	}
	return 0, 0, fmt.Errorf("unsupported construct %s", re)
}

func (n *nfa) runeEdge(from int, r rune, to int, fold bool) {
	if fold && r < utf8.RuneSelf {
		lower, upper := strings.ToLower(string(r)), strings.ToUpper(string(r))
		n.edge(from, lower[0], lower[0], to)
		if upper != lower {
			n.edge(from, upper[0], upper[0], to)
		}
		return
	}
	var buf [utf8.UTFMax]byte
	size := utf8.EncodeRune(buf[:], r)
	cur := from
	for i := 0; i < size-1; i++ {
		next := n.add()
		n.edge(cur, buf[i], buf[i], next)
		cur = next
	}
	n.edge(cur, buf[size-1], buf[size-1], to)
}

// class adds edges for the rune ranges of a character class. ASCII ranges are
// exact; any non-ASCII part admits every well-formed multibyte sequence.
func (n *nfa) class(from int, ranges []rune, to int) {
	multibyte := false
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if lo < utf8.RuneSelf {
			n.edge(from, byte(lo), byte(min(hi, utf8.RuneSelf-1)), to)
		}
		if hi >= utf8.RuneSelf {
			multibyte = true
		}
	}
	if !multibyte {
		return
	}
	leads := []struct {
		lo, hi byte
		tail   int
	}{{0xC2, 0xDF, 1}, {0xE0, 0xEF, 2}, {0xF0, 0xF4, 3}}
	for _, l := range leads {
		cur := n.add()
		n.edge(from, l.lo, l.hi, cur)
		for i := 1; i < l.tail; i++ {
			next := n.add()
			n.edge(cur, 0x80, 0xBF, next)
			cur = next
		}
		n.edge(cur, 0x80, 0xBF, to)
	}
}

func (n *nfa) closure(set []int) []int {
	seen := make(map[int]bool, len(set))
	stack := slices.Clone(set)
	for _, s := range set {
		seen[s] = true
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range n.states[s].eps {
			if !seen[t] {
				seen[t] = true
				stack = append(stack, t)
			}
		}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func setKey(set []int) string {
	var b strings.Builder
	for _, s := range set {
		b.WriteString(strconv.Itoa(s))
		b.WriteByte(',')
	}
	return b.String()
}

// dfa runs the subset construction. Accept lists are sorted by symbol id,
// which is declaration priority.
func (n *nfa) dfa() []grammar.LexState {
	start := n.closure([]int{0})
	sets := [][]int{start}
	index := map[string]int{setKey(start): 0}
	var out []grammar.LexState

	for i := 0; i < len(sets); i++ {
		set := sets[i]
		var ls grammar.LexState
		for _, s := range set {
			if a := n.states[s].accept; a >= 0 && !slices.Contains(ls.Accept, grammar.Symbol(a)) {
				ls.Accept = append(ls.Accept, grammar.Symbol(a))
			}
		}
		slices.Sort(ls.Accept)

		targets := make([]int, 256)
		for b := 0; b < 256; b++ {
			var next []int
			for _, s := range set {
				for _, e := range n.states[s].edges {
					if byte(b) >= e.lo && byte(b) <= e.hi {
						next = append(next, e.to)
					}
				}
			}
			if len(next) == 0 {
				targets[b] = -1
				continue
			}
			next = n.closure(next)
			key := setKey(next)
			t, ok := index[key]
			if !ok {
				t = len(sets)
				index[key] = t
				sets = append(sets, next)
			}
			targets[b] = t
		}
		for b := 0; b < 256; {
			if targets[b] < 0 {
				b++
				continue
			}
			hi := b
			for hi+1 < 256 && targets[hi+1] == targets[b] {
				hi++
			}
			ls.Transitions = append(ls.Transitions, grammar.LexTransition{Lo: byte(b), Hi: byte(hi), Next: targets[b]})
			b = hi + 1
		}
		out = append(out, ls)
	}
	return out
}
