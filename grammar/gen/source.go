// Package gen compiles grammar sources into parse tables.
//
// A source is a YAML document naming the tokens, external tokens, whitespace
// patterns and precedence levels of a language, with its rules written in
// EBNF:
//
//	name: arith
//	tokens:
//	  - name: IDENT
//	    pattern: '[a-z]+'
//	skip: ['[ \t]+']
//	precedence:
//	  - assoc: left
//	    tokens: ["+"]
//	rules: |
//	  expr = expr "+" expr | IDENT .
//
// Quoted strings in rules are literal tokens. Productions whose names start
// with an underscore are hidden: their children are spliced into the parent.
// Tokens and externals whose names start with an underscore are hidden too
// and never appear in printed trees.
package gen

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Source struct {
	Name             string            `yaml:"name"`
	Start            string            `yaml:"start,omitempty"`
	Tokens           []TokenDecl       `yaml:"tokens,omitempty"`
	Skip             []string          `yaml:"skip,omitempty"`
	Externals        []ExternalDecl    `yaml:"externals,omitempty"`
	Precedence       []Level           `yaml:"precedence,omitempty"`
	RulePrecedence   map[string]string `yaml:"rule_precedence,omitempty"`
	ScannerStateSize int               `yaml:"scanner_state_size,omitempty"`
	Rules            string            `yaml:"rules"`
}

// TokenDecl is a named token recognized by a regular expression
// (regexp/syntax, Perl flags).
type TokenDecl struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Extra   bool   `yaml:"extra,omitempty"`
}

// ExternalDecl is a token recognized by the grammar's external scanner.
// Externals are indexed in declaration order.
type ExternalDecl struct {
	Name  string `yaml:"name"`
	Extra bool   `yaml:"extra,omitempty"`
	Named *bool  `yaml:"named,omitempty"`
}

// Level is one precedence level; later levels bind tighter. Tokens lists
// literal token texts or token names; Name lets rule_precedence refer to the
// level.
type Level struct {
	Name   string   `yaml:"name,omitempty"`
	Assoc  string   `yaml:"assoc,omitempty"`
	Tokens []string `yaml:"tokens,omitempty"`
}

const defaultScannerStateSize = 256

func Parse(r io.Reader) (*Source, error) {
	var src Source
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("decode grammar source: %w", err)
	}
	return &src, nil
}

func ParseFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grammar source: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
