package grammar

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dhamidi/sitter/scanner"
	"gopkg.in/yaml.v3"
)

type state struct {
	lex      int
	actions  [][]Action
	gotos    []StateID
	valid    []bool
	external []bool
	scan     bool
	expected []Symbol
	mode     int
}

// Conflict is a table entry left with several actions after precedence
// resolution. The automaton explores them in order.
type Conflict struct {
	State   StateID  `json:"state"`
	Symbol  Symbol   `json:"symbol"`
	Actions []Action `json:"actions"`
}

type Descriptor struct {
	table      Table
	tokenCount int
	states     []state
	external   []int
	byName     map[string]Symbol
	conflicts  []Conflict
	modes      int
	scanner    scanner.Scanner
}

// Load decodes a serialized table (YAML, or JSON, which YAML accepts) and
// builds a descriptor from it. s may be nil when the grammar declares no
// external tokens.
func Load(r io.Reader, s scanner.Scanner) (*Descriptor, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, &InvalidGrammarError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	return New(t, s)
}

// New validates t and builds the runtime descriptor. Conflicting entries are
// narrowed with the precedence table; what remains is reported by Conflicts.
func New(t Table, s scanner.Scanner) (*Descriptor, error) {
	tokenCount, err := validate(&t, s)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		table:      t,
		tokenCount: tokenCount,
		external:   make([]int, tokenCount),
		byName:     make(map[string]Symbol, len(t.Symbols)),
		scanner:    s,
	}
	for i := range d.external {
		d.external[i] = -1
	}
	for i, sym := range t.Externals {
		d.external[sym] = i
	}
	for i, sym := range t.Symbols {
		if _, ok := d.byName[sym.Name]; !ok {
			d.byName[sym.Name] = Symbol(i)
		}
	}

	modes := make(map[string]int)
	d.states = make([]state, len(t.States))
	for i, row := range t.States {
		st := &d.states[i]
		st.lex = row.Lex
		st.actions = make([][]Action, tokenCount)
		for _, e := range row.Actions {
			acts := d.resolve(e.Symbol, e.Actions)
			if len(acts) > 1 {
				d.conflicts = append(d.conflicts, Conflict{State: StateID(i), Symbol: e.Symbol, Actions: acts})
			}
			st.actions[e.Symbol] = acts
		}

		st.gotos = make([]StateID, len(t.Symbols)-tokenCount)
		for j := range st.gotos {
			st.gotos[j] = NoState
		}
		for _, g := range row.Gotos {
			st.gotos[int(g.Symbol)-tokenCount] = g.State
		}

		st.valid = make([]bool, tokenCount)
		var key strings.Builder
		fmt.Fprintf(&key, "%d:", row.Lex)
		for sym := 0; sym < tokenCount; sym++ {
			info := t.Symbols[sym]
			if len(st.actions[sym]) > 0 {
				st.expected = append(st.expected, Symbol(sym))
			}
			st.valid[sym] = len(st.actions[sym]) > 0 || info.Extra || info.Skip
			if st.valid[sym] {
				key.WriteByte('1')
			} else {
				key.WriteByte('0')
			}
		}
		st.external = make([]bool, len(t.Externals))
		for j, sym := range t.Externals {
			st.external[j] = st.valid[sym]
			st.scan = st.scan || st.valid[sym]
		}

		mode, ok := modes[key.String()]
		if !ok {
			mode = len(modes)
			modes[key.String()] = mode
		}
		st.mode = mode
	}
	d.modes = len(modes)

	return d, nil
}

// Save writes the descriptor's table as YAML.
func (d *Descriptor) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d.table); err != nil {
		return err
	}
	return enc.Close()
}

func (d *Descriptor) Table() Table {
	return d.table
}

func (d *Descriptor) Name() string {
	return d.table.Name
}

func (d *Descriptor) Scanner() scanner.Scanner {
	return d.scanner
}

func (d *Descriptor) ScannerStateSize() int {
	return d.table.ScannerStateSize
}

func (d *Descriptor) Start() StateID {
	return d.table.Start
}

func (d *Descriptor) SymbolCount() int {
	return len(d.table.Symbols)
}

// TokenCount is the number of terminal symbols. Terminals occupy the ids
// below it and nonterminals the ids from it upwards.
func (d *Descriptor) TokenCount() int {
	return d.tokenCount
}

func (d *Descriptor) StateCount() int {
	return len(d.states)
}

func (d *Descriptor) Symbol(sym Symbol) SymbolInfo {
	if sym == SymbolError {
		return SymbolInfo{Name: "ERROR", Kind: KindNonterminal, Named: true}
	}
	if int(sym) >= len(d.table.Symbols) {
		return SymbolInfo{Name: "?"}
	}
	return d.table.Symbols[sym]
}

func (d *Descriptor) SymbolName(sym Symbol) string {
	return d.Symbol(sym).Name
}

func (d *Descriptor) SymbolByName(name string) (Symbol, bool) {
	sym, ok := d.byName[name]
	return sym, ok
}

func (d *Descriptor) IsTerminal(sym Symbol) bool {
	return int(sym) < d.tokenCount
}

func (d *Descriptor) RuleCount() int {
	return len(d.table.Rules)
}

func (d *Descriptor) Rule(i int) Rule {
	return d.table.Rules[i]
}

// Actions returns the actions for sym in state st, most preferred first. An
// empty result is an error entry.
func (d *Descriptor) Actions(st StateID, sym Symbol) []Action {
	if int(sym) >= d.tokenCount || int(st) >= len(d.states) {
		return nil
	}
	return d.states[st].actions[sym]
}

func (d *Descriptor) Goto(st StateID, sym Symbol) (StateID, bool) {
	if int(sym) < d.tokenCount || int(sym) >= len(d.table.Symbols) || int(st) >= len(d.states) {
		return NoState, false
	}
	next := d.states[st].gotos[int(sym)-d.tokenCount]
	return next, next != NoState
}

// Valid returns the terminals the lexer may produce in st, indexed by symbol.
func (d *Descriptor) Valid(st StateID) []bool {
	return d.states[st].valid
}

// ExternalValid returns the valid external tokens of st, indexed like
// Externals, and whether any of them is valid.
func (d *Descriptor) ExternalValid(st StateID) ([]bool, bool) {
	s := &d.states[st]
	return s.external, s.scan
}

// Expected lists the terminals with an action in st, in id order.
func (d *Descriptor) Expected(st StateID) []Symbol {
	return d.states[st].expected
}

func (d *Descriptor) LexStart(st StateID) int {
	return d.states[st].lex
}

func (d *Descriptor) LexState(i int) *LexState {
	return &d.table.Lex[i]
}

// Mode identifies the lexical context of st: states with equal modes lex
// identically.
func (d *Descriptor) Mode(st StateID) int {
	return d.states[st].mode
}

func (d *Descriptor) ModeCount() int {
	return d.modes
}

func (d *Descriptor) Externals() []Symbol {
	return d.table.Externals
}

// ExternalIndex returns the position of sym in Externals.
func (d *Descriptor) ExternalIndex(sym Symbol) (int, bool) {
	if int(sym) >= len(d.external) || d.external[sym] < 0 {
		return -1, false
	}
	return d.external[sym], true
}

func (d *Descriptor) Conflicts() []Conflict {
	return d.conflicts
}

// Prefer orders two competing actions on lookahead sym. It returns a negative
// number when a should win and a positive one when b should. Declared
// precedence decides first, then the lower rule index, then shift over
// reduce.
func (d *Descriptor) Prefer(sym Symbol, a, b Action) int {
	if w := d.precedenceWinner(sym, a, b); w == -1 || w == 1 {
		return w
	}
	if a.Rule != b.Rule {
		return cmp.Compare(a.Rule, b.Rule)
	}
	return cmp.Compare(kindRank(a.Kind), kindRank(b.Kind))
}

func kindRank(k ActionKind) int {
	switch k {
	case ActionAccept:
		return 0
	case ActionShift:
		return 1
	default:
		return 2
	}
}

const neitherWins = 2

// precedenceWinner applies the precedence table to a pair of actions: -1 when
// a wins, 1 when b wins, 0 when precedence does not decide and neitherWins
// for a non-associative clash.
func (d *Descriptor) precedenceWinner(sym Symbol, a, b Action) int {
	switch {
	case a.Kind == ActionShift && b.Kind == ActionReduce:
		return d.shiftOverReduce(sym, b.Rule)
	case a.Kind == ActionReduce && b.Kind == ActionShift:
		w := d.shiftOverReduce(sym, a.Rule)
		if w == neitherWins {
			return w
		}
		return -w
	case a.Kind == ActionReduce && b.Kind == ActionReduce:
		pa, pb := d.table.Rules[a.Rule].Prec, d.table.Rules[b.Rule].Prec
		if pa != nil && pb != nil && pa.Level != pb.Level {
			if pa.Level > pb.Level {
				return -1
			}
			return 1
		}
	}
	return 0
}

// shiftOverReduce returns -1 when shifting sym beats reducing rule, 1 for the
// opposite, 0 when undecided and neitherWins when both are errors.
func (d *Descriptor) shiftOverReduce(sym Symbol, rule int) int {
	tp, rp := d.table.Symbols[sym].Prec, d.table.Rules[rule].Prec
	if tp == nil || rp == nil {
		return 0
	}
	switch {
	case tp.Level > rp.Level:
		return -1
	case tp.Level < rp.Level:
		return 1
	}
	assoc := rp.Assoc
	if assoc == AssocNone {
		assoc = tp.Assoc
	}
	switch assoc {
	case AssocLeft:
		return 1
	case AssocRight:
		return -1
	case AssocNonassoc:
		return neitherWins
	}
	return 0
}

// resolve drops the actions beaten under declared precedence and orders the
// survivors by preference.
func (d *Descriptor) resolve(sym Symbol, actions []Action) []Action {
	if len(actions) == 1 {
		return actions
	}
	acts := slices.Clone(actions)
	alive := make([]bool, len(acts))
	for i := range alive {
		alive[i] = true
	}
	for i := range acts {
		for j := i + 1; j < len(acts); j++ {
			if !alive[i] || !alive[j] {
				continue
			}
			switch d.precedenceWinner(sym, acts[i], acts[j]) {
			case -1:
				alive[j] = false
			case 1:
				alive[i] = false
			case neitherWins:
				alive[i], alive[j] = false, false
			}
		}
	}
	var out []Action
	for i, a := range acts {
		if alive[i] {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b Action) int { return d.Prefer(sym, a, b) })
	return out
}
