package gen

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/dhamidi/sitter/grammar"
)

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (i % 64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(i%64)) != 0
}

// union adds o to b and reports whether b changed.
func (b bitset) union(o bitset) bool {
	changed := false
	for i := range b {
		if next := b[i] | o[i]; next != b[i] {
			b[i] = next
			changed = true
		}
	}
	return changed
}

func (b bitset) clone() bitset {
	return slices.Clone(b)
}

func (b bitset) each(fn func(int)) {
	for i, w := range b {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			fn(i*64 + bit)
			w &^= 1 << bit
		}
	}
}

type lrRule struct {
	lhs int
	rhs []int
}

type item struct {
	rule, dot int
}

type lrState struct {
	kernel []item
	la     []bitset
	trans  map[int]int
}

// lalr builds LALR(1) tables by constructing LR(0) kernels and merging
// lookaheads into states with equal kernels until nothing changes.
type lalr struct {
	tokens   int
	rules    []lrRule
	aug      int
	byLHS    [][]int
	nullable []bool
	first    []bitset
	states   []*lrState
}

func newLALR(tokens, symbols int, rules []lrRule, start int) *lalr {
	augSym := symbols
	l := &lalr{
		tokens:   tokens,
		rules:    append(slices.Clone(rules), lrRule{lhs: augSym, rhs: []int{start}}),
		byLHS:    make([][]int, symbols+1),
		nullable: make([]bool, symbols+1),
		first:    make([]bitset, symbols+1),
	}
	l.aug = len(l.rules) - 1
	for i, r := range l.rules {
		l.byLHS[r.lhs] = append(l.byLHS[r.lhs], i)
	}
	for i := range l.first {
		l.first[i] = newBitset(tokens)
	}
	l.computeFirst()
	return l
}

func (l *lalr) computeFirst() {
	for changed := true; changed; {
		changed = false
		for _, r := range l.rules {
			allNullable := true
			for _, s := range r.rhs {
				if s < l.tokens {
					if !l.first[r.lhs].has(s) {
						l.first[r.lhs].set(s)
						changed = true
					}
					allNullable = false
					break
				}
				if l.first[r.lhs].union(l.first[s]) {
					changed = true
				}
				if !l.nullable[s] {
					allNullable = false
					break
				}
			}
			if allNullable && !l.nullable[r.lhs] {
				l.nullable[r.lhs] = true
				changed = true
			}
		}
	}
}

func (l *lalr) firstSeq(seq []int, la bitset) bitset {
	out := newBitset(l.tokens)
	for _, s := range seq {
		if s < l.tokens {
			out.set(s)
			return out
		}
		out.union(l.first[s])
		if !l.nullable[s] {
			return out
		}
	}
	out.union(la)
	return out
}

func (l *lalr) closure(st *lrState) ([]item, []bitset) {
	items := slices.Clone(st.kernel)
	las := make([]bitset, len(st.la))
	idx := make(map[item]int, len(items))
	for i, it := range items {
		las[i] = st.la[i].clone()
		idx[it] = i
	}
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(items); i++ {
			it := items[i]
			r := l.rules[it.rule]
			if it.dot >= len(r.rhs) || r.rhs[it.dot] < l.tokens {
				continue
			}
			la := l.firstSeq(r.rhs[it.dot+1:], las[i])
			for _, ri := range l.byLHS[r.rhs[it.dot]] {
				next := item{rule: ri}
				if j, ok := idx[next]; ok {
					if las[j].union(la) {
						changed = true
					}
					continue
				}
				idx[next] = len(items)
				items = append(items, next)
				las = append(las, la.clone())
				changed = true
			}
		}
	}
	return items, las
}

func kernelKey(kernel []item) string {
	var b strings.Builder
	for _, it := range kernel {
		fmt.Fprintf(&b, "%d.%d,", it.rule, it.dot)
	}
	return b.String()
}

func (l *lalr) build() error {
	end := newBitset(l.tokens)
	end.set(int(grammar.SymbolEnd))
	l.states = []*lrState{{kernel: []item{{rule: l.aug}}, la: []bitset{end}}}
	index := map[string]int{kernelKey(l.states[0].kernel): 0}

	queue := []int{0}
	queued := map[int]bool{0: true}
	for len(queue) > 0 {
		si := queue[0]
		queue = queue[1:]
		queued[si] = false
		st := l.states[si]

		items, las := l.closure(st)
		type pair struct {
			it item
			la bitset
		}
		groups := make(map[int][]pair)
		for i, it := range items {
			r := l.rules[it.rule]
			if it.dot < len(r.rhs) {
				x := r.rhs[it.dot]
				groups[x] = append(groups[x], pair{item{it.rule, it.dot + 1}, las[i]})
			}
		}

		symbols := make([]int, 0, len(groups))
		for x := range groups {
			symbols = append(symbols, x)
		}
		slices.Sort(symbols)

		st.trans = make(map[int]int, len(symbols))
		for _, x := range symbols {
			g := groups[x]
			slices.SortFunc(g, func(a, b pair) int {
				if a.it.rule != b.it.rule {
					return a.it.rule - b.it.rule
				}
				return a.it.dot - b.it.dot
			})
			kernel := make([]item, len(g))
			la := make([]bitset, len(g))
			for i, p := range g {
				kernel[i], la[i] = p.it, p.la
			}

			key := kernelKey(kernel)
			target, ok := index[key]
			if !ok {
				if len(l.states) >= int(grammar.NoState) {
					return fmt.Errorf("more than %d parse states", grammar.NoState)
				}
				target = len(l.states)
				index[key] = target
				cloned := make([]bitset, len(la))
				for i := range la {
					cloned[i] = la[i].clone()
				}
				l.states = append(l.states, &lrState{kernel: kernel, la: cloned})
				queue = append(queue, target)
				queued[target] = true
			} else {
				changed := false
				for i := range la {
					if l.states[target].la[i].union(la[i]) {
						changed = true
					}
				}
				if changed && !queued[target] {
					queue = append(queue, target)
					queued[target] = true
				}
			}
			st.trans[x] = target
		}
	}
	return nil
}

// rows emits the parse table. Every action of a conflicting entry is kept;
// the descriptor narrows them with precedence when it is loaded.
func (l *lalr) rows() []grammar.StateRow {
	rows := make([]grammar.StateRow, len(l.states))
	for si, st := range l.states {
		items, las := l.closure(st)

		reduces := make(map[int][]grammar.Action)
		shiftRank := make(map[int]int)
		for i, it := range items {
			r := l.rules[it.rule]
			switch {
			case it.dot < len(r.rhs):
				x := r.rhs[it.dot]
				if x < l.tokens {
					if rank, ok := shiftRank[x]; !ok || it.rule < rank {
						shiftRank[x] = it.rule
					}
				}
			case it.rule == l.aug:
				reduces[int(grammar.SymbolEnd)] = append(reduces[int(grammar.SymbolEnd)], grammar.Action{Kind: grammar.ActionAccept})
			default:
				las[i].each(func(t int) {
					reduces[t] = append(reduces[t], grammar.Action{Kind: grammar.ActionReduce, Rule: it.rule})
				})
			}
		}

		entries := make(map[int][]grammar.Action)
		var gotos []grammar.GotoEntry
		for x, target := range st.trans {
			if x < l.tokens {
				entries[x] = append(entries[x], grammar.Action{Kind: grammar.ActionShift, State: grammar.StateID(target), Rule: shiftRank[x]})
			} else {
				gotos = append(gotos, grammar.GotoEntry{Symbol: grammar.Symbol(x), State: grammar.StateID(target)})
			}
		}
		for t, acts := range reduces {
			slices.SortFunc(acts, func(a, b grammar.Action) int { return a.Rule - b.Rule })
			entries[t] = append(entries[t], acts...)
		}

		row := grammar.StateRow{}
		syms := make([]int, 0, len(entries))
		for t := range entries {
			syms = append(syms, t)
		}
		slices.Sort(syms)
		for _, t := range syms {
			row.Actions = append(row.Actions, grammar.ActionEntry{Symbol: grammar.Symbol(t), Actions: entries[t]})
		}
		slices.SortFunc(gotos, func(a, b grammar.GotoEntry) int { return int(a.Symbol) - int(b.Symbol) })
		row.Gotos = gotos
		rows[si] = row
	}
	return rows
}
