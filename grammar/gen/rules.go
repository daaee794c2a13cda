package gen

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/ebnf"
)

// ref is a symbol reference inside a rule before ids are assigned.
type ref struct {
	name    string
	literal bool
}

func (r ref) key() string {
	if r.literal {
		return fmt.Sprintf("%q", r.name)
	}
	return r.name
}

type rawRule struct {
	lhs    string
	rhs    []ref
	prod   string
	hidden bool
}

// maxAlternatives bounds the expansion of options and groups within one
// production.
const maxAlternatives = 4096

type desugarer struct {
	rules    []rawRule
	order    []string
	hidden   map[string]bool
	literals []string
	seenLit  map[string]bool
	aux      map[string]int
}

// desugar parses the EBNF rules and rewrites them into plain productions:
// options and groups are expanded into alternatives, repetitions become
// hidden left-recursive helper productions.
func desugar(filename, rules string) (*desugarer, error) {
	g, err := ebnf.Parse(filename, strings.NewReader(rules))
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	prods := make([]*ebnf.Production, 0, len(g))
	for _, p := range g {
		prods = append(prods, p)
	}
	slices.SortFunc(prods, func(a, b *ebnf.Production) int {
		return a.Name.Pos().Offset - b.Name.Pos().Offset
	})

	d := &desugarer{
		hidden:  make(map[string]bool),
		seenLit: make(map[string]bool),
		aux:     make(map[string]int),
	}
	for _, p := range prods {
		name := p.Name.String
		d.order = append(d.order, name)
		d.hidden[name] = strings.HasPrefix(name, "_")
	}

	for _, p := range prods {
		name := p.Name.String
		alts, err := d.expand(p.Expr, name)
		if err != nil {
			return nil, fmt.Errorf("production %s: %w", name, err)
		}
		d.addRules(name, name, alts)
	}
	return d, nil
}

func (d *desugarer) addRules(lhs, prod string, alts [][]ref) {
	seen := make(map[string]bool, len(alts))
	for _, rhs := range alts {
		var key strings.Builder
		for _, r := range rhs {
			key.WriteString(r.key())
			key.WriteByte(' ')
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		d.rules = append(d.rules, rawRule{lhs: lhs, rhs: rhs, prod: prod, hidden: d.hidden[lhs]})
	}
}

func (d *desugarer) expand(expr ebnf.Expression, owner string) ([][]ref, error) {
	switch e := expr.(type) {
	case nil:
		return [][]ref{nil}, nil

	case *ebnf.Name:
		return [][]ref{{{name: e.String}}}, nil

	case *ebnf.Token:
		if e.String == "" {
			return nil, fmt.Errorf("%s: empty literal", e.Pos())
		}
		if !d.seenLit[e.String] {
			d.seenLit[e.String] = true
			d.literals = append(d.literals, e.String)
		}
		return [][]ref{{{name: e.String, literal: true}}}, nil

	case ebnf.Sequence:
		out := [][]ref{nil}
		for _, item := range e {
			alts, err := d.expand(item, owner)
			if err != nil {
				return nil, err
			}
			if len(out)*len(alts) > maxAlternatives {
				return nil, fmt.Errorf("%s: too many alternatives after expansion", item.Pos())
			}
			next := make([][]ref, 0, len(out)*len(alts))
			for _, prefix := range out {
				for _, alt := range alts {
					seq := make([]ref, 0, len(prefix)+len(alt))
					seq = append(seq, prefix...)
					seq = append(seq, alt...)
					next = append(next, seq)
				}
			}
			out = next
		}
		return out, nil

	case ebnf.Alternative:
		var out [][]ref
		for _, item := range e {
			alts, err := d.expand(item, owner)
			if err != nil {
				return nil, err
			}
			out = append(out, alts...)
		}
		return out, nil

	case *ebnf.Group:
		return d.expand(e.Body, owner)

	case *ebnf.Option:
		alts, err := d.expand(e.Body, owner)
		if err != nil {
			return nil, err
		}
		return append(alts, nil), nil

	case *ebnf.Repetition:
		alts, err := d.expand(e.Body, owner)
		if err != nil {
			return nil, err
		}
		base := strings.TrimPrefix(owner, "_")
		d.aux[base]++
		name := fmt.Sprintf("_%s_repeat%d", base, d.aux[base])
		d.hidden[name] = true
		d.order = append(d.order, name)

		var rec [][]ref
		for _, alt := range alts {
			if len(alt) == 0 {
				continue
			}
			rec = append(rec, append([]ref{{name: name}}, alt...))
		}
		if len(rec) == 0 {
			return nil, fmt.Errorf("%s: repetition of nothing", e.Pos())
		}
		var body [][]ref
		for _, alt := range alts {
			if len(alt) > 0 {
				body = append(body, alt)
			}
		}
		d.addRules(name, owner, append(rec, body...))
		return [][]ref{{{name: name}}, nil}, nil

	case *ebnf.Range:
		return nil, fmt.Errorf("%s: character ranges are not supported in rules; declare a token", e.Pos())

	case *ebnf.Bad:
		return nil, fmt.Errorf("%s: %s", e.Pos(), e.Error)
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}
