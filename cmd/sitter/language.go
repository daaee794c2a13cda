package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dhamidi/sitter/config"
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/gen"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/ruby"
	"github.com/dhamidi/sitter/scanner"
	"gopkg.in/yaml.v3"
)

type globalFlags struct {
	config  string
	verbose int
}

// setup loads the configuration, applies --verbose over it and configures
// logging. It returns the parser options the configuration asks for.
func (g *globalFlags) setup() (config.Config, []parser.Option, error) {
	c := config.Default()
	if g.config != "" {
		var err error
		if c, err = config.Load(g.config); err != nil {
			return config.Config{}, nil, err
		}
	}
	if g.verbose > 0 {
		c.Log.Verbosity = g.verbose
	}
	c.Log.ConfigureLog()

	opts, err := c.ParserOptions()
	if err != nil {
		return config.Config{}, nil, err
	}
	return c, opts, nil
}

// loadLanguage resolves a --grammar value. "ruby" is the built-in Ruby
// grammar; anything else is a path to either a grammar source or a table
// written by "sitter grammar compile".
func loadLanguage(name string) (*grammar.Descriptor, error) {
	if name == "ruby" {
		return ruby.Language()
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	sc, err := scannerFor(data)
	if err != nil {
		return nil, err
	}
	src, srcErr := gen.Parse(bytes.NewReader(data))
	if srcErr == nil {
		return src.Build(sc)
	}
	lang, err := grammar.Load(bytes.NewReader(data), sc)
	if err != nil {
		return nil, fmt.Errorf("%s is neither a grammar source (%v) nor a compiled table: %w", name, srcErr, err)
	}
	return lang, nil
}

// scannerFor picks the external scanner for a grammar file by the language
// name it declares. Only the built-in languages have one.
func scannerFor(data []byte) (scanner.Scanner, error) {
	var head struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode grammar: %w", err)
	}
	if head.Name == "ruby" {
		return ruby.NewScanner(), nil
	}
	return nil, nil
}
