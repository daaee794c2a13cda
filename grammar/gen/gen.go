package gen

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/scanner"
)

// Compile turns the source into a table. Symbols are numbered: end, literal
// tokens in order of first use, named tokens, skip patterns, externals, then
// nonterminals. The lexical automaton prefers lower ids on equal matches.
func (s *Source) Compile() (grammar.Table, error) {
	if s.Name == "" {
		return grammar.Table{}, errors.New("grammar has no name")
	}
	if s.Rules == "" {
		return grammar.Table{}, errors.New("grammar has no rules")
	}
	d, err := desugar(s.Name, s.Rules)
	if err != nil {
		return grammar.Table{}, err
	}

	symbols := []grammar.SymbolInfo{{Name: "end", Kind: grammar.KindTerminal}}
	byName := make(map[string]int)
	literal := make(map[string]int)
	declare := func(info grammar.SymbolInfo) error {
		if _, dup := byName[info.Name]; dup {
			return fmt.Errorf("symbol %q declared twice", info.Name)
		}
		byName[info.Name] = len(symbols)
		symbols = append(symbols, info)
		return nil
	}

	for _, lit := range d.literals {
		literal[lit] = len(symbols)
		symbols = append(symbols, grammar.SymbolInfo{Name: lit, Kind: grammar.KindTerminal})
	}
	for _, tok := range s.Tokens {
		if tok.Pattern == "" {
			return grammar.Table{}, fmt.Errorf("token %s has no pattern", tok.Name)
		}
		hidden := strings.HasPrefix(tok.Name, "_")
		if err := declare(grammar.SymbolInfo{Name: tok.Name, Kind: grammar.KindTerminal, Named: !hidden, Hidden: hidden, Extra: tok.Extra}); err != nil {
			return grammar.Table{}, err
		}
	}
	skipStart := len(symbols)
	for i := range s.Skip {
		symbols = append(symbols, grammar.SymbolInfo{Name: fmt.Sprintf("_skip%d", i), Kind: grammar.KindTerminal, Skip: true})
	}
	var externals []grammar.Symbol
	for _, ext := range s.Externals {
		hidden := strings.HasPrefix(ext.Name, "_")
		named := !hidden && (ext.Named == nil || *ext.Named)
		externals = append(externals, grammar.Symbol(len(symbols)))
		if err := declare(grammar.SymbolInfo{Name: ext.Name, Kind: grammar.KindExternal, Named: named, Hidden: hidden, Extra: ext.Extra}); err != nil {
			return grammar.Table{}, err
		}
	}
	tokenCount := len(symbols)
	for _, name := range d.order {
		info := grammar.SymbolInfo{Name: name, Kind: grammar.KindNonterminal, Named: !d.hidden[name], Hidden: d.hidden[name]}
		if err := declare(info); err != nil {
			return grammar.Table{}, fmt.Errorf("production %s: %w", name, err)
		}
	}

	// Precedence entries name terminals only; a literal wins over a
	// production spelled the same way.
	lookup := func(name string) (int, bool) {
		if id, ok := literal[name]; ok {
			return id, true
		}
		id, ok := byName[name]
		return id, ok && id < tokenCount
	}

	levels := make(map[string]*grammar.Precedence)
	for i, lvl := range s.Precedence {
		p := &grammar.Precedence{Level: i + 1}
		if err := p.Assoc.UnmarshalText([]byte(lvl.Assoc)); err != nil {
			return grammar.Table{}, fmt.Errorf("precedence level %d: %w", i+1, err)
		}
		for _, tok := range lvl.Tokens {
			id, ok := lookup(tok)
			if !ok {
				return grammar.Table{}, fmt.Errorf("precedence level %d: unknown token %q", i+1, tok)
			}
			symbols[id].Prec = p
		}
		if lvl.Name != "" {
			levels[lvl.Name] = p
		}
	}
	for prod, level := range s.RulePrecedence {
		if _, ok := d.hidden[prod]; !ok {
			return grammar.Table{}, fmt.Errorf("rule precedence for unknown production %s", prod)
		}
		if levels[level] == nil {
			return grammar.Table{}, fmt.Errorf("production %s: unknown precedence level %q", prod, level)
		}
	}

	rules := make([]grammar.Rule, 0, len(d.rules))
	lr := make([]lrRule, 0, len(d.rules))
	for _, raw := range d.rules {
		r := grammar.Rule{LHS: grammar.Symbol(byName[raw.lhs])}
		rhs := make([]int, 0, len(raw.rhs))
		for _, sym := range raw.rhs {
			var id int
			var ok bool
			if sym.literal {
				id, ok = literal[sym.name]
			} else {
				id, ok = byName[sym.name]
			}
			if !ok {
				return grammar.Table{}, fmt.Errorf("production %s: undefined symbol %s", raw.prod, sym.name)
			}
			r.RHS = append(r.RHS, grammar.Symbol(id))
			rhs = append(rhs, id)
			if id < tokenCount && symbols[id].Prec != nil {
				r.Prec = symbols[id].Prec
			}
		}
		if level, ok := s.RulePrecedence[raw.prod]; ok && raw.lhs == raw.prod {
			r.Prec = levels[level]
		}
		rules = append(rules, r)
		lr = append(lr, lrRule{lhs: int(r.LHS), rhs: rhs})
	}

	start := d.order[0]
	if s.Start != "" {
		start = s.Start
	}
	startID, ok := byName[start]
	if !ok || startID < tokenCount {
		return grammar.Table{}, fmt.Errorf("start symbol %s is not a production", start)
	}

	automaton := newLALR(tokenCount, len(symbols), lr, startID)
	if err := automaton.build(); err != nil {
		return grammar.Table{}, err
	}

	n := newNFA()
	for _, lit := range d.literals {
		n.addLiteral(lit, grammar.Symbol(literal[lit]))
	}
	for _, tok := range s.Tokens {
		if err := n.addPattern(tok.Pattern, grammar.Symbol(byName[tok.Name])); err != nil {
			return grammar.Table{}, fmt.Errorf("token %s: %w", tok.Name, err)
		}
	}
	for i, pattern := range s.Skip {
		if err := n.addPattern(pattern, grammar.Symbol(skipStart+i)); err != nil {
			return grammar.Table{}, fmt.Errorf("skip pattern %q: %w", pattern, err)
		}
	}
	lex := n.dfa()
	if len(lex[0].Accept) > 0 {
		return grammar.Table{}, fmt.Errorf("token %s matches the empty string", symbols[lex[0].Accept[0]].Name)
	}

	t := grammar.Table{
		Name:      s.Name,
		Symbols:   symbols,
		Rules:     rules,
		States:    automaton.rows(),
		Lex:       lex,
		Externals: externals,
	}
	if len(externals) > 0 {
		t.ScannerStateSize = s.ScannerStateSize
		if t.ScannerStateSize == 0 {
			t.ScannerStateSize = defaultScannerStateSize
		}
	}
	return t, nil
}

// Build reads a grammar source from r, compiles it and loads the result with
// the external scanner sc.
func Build(r io.Reader, sc scanner.Scanner) (*grammar.Descriptor, error) {
	src, err := Parse(r)
	if err != nil {
		return nil, &grammar.InvalidGrammarError{Reason: err.Error()}
	}
	return src.Build(sc)
}

func (s *Source) Build(sc scanner.Scanner) (*grammar.Descriptor, error) {
	t, err := s.Compile()
	if err != nil {
		return nil, &grammar.InvalidGrammarError{Grammar: s.Name, Reason: err.Error()}
	}
	return grammar.New(t, sc)
}
