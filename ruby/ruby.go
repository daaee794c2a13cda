// Package ruby is the bundled Ruby language: a grammar covering methods,
// classes and modules, control flow, Ruby's operator precedence, calls and
// literals, together with the external scanner for heredocs and string
// literals.
package ruby

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/gen"
	"github.com/dhamidi/sitter/scanner"
)

//go:embed grammar.yaml
var grammarSource []byte

// External token indexes, in the order grammar.yaml declares them.
const (
	heredocBeginning = iota
	heredocBody
	stringStart
	stringContent
	interpolationStart
	interpolationEnd
	stringEnd
)

var (
	once    sync.Once
	lang    *grammar.Descriptor
	langErr error
)

// Language compiles the grammar on first use. The descriptor is shared and
// read-only.
func Language() (*grammar.Descriptor, error) {
	once.Do(func() {
		lang, langErr = gen.Build(bytes.NewReader(grammarSource), NewScanner())
	})
	return lang, langErr
}

// Source returns the grammar source.
func Source() []byte {
	return bytes.Clone(grammarSource)
}

// NewScanner returns the external scanner: heredocs first, then string
// literals.
func NewScanner() *scanner.Mux {
	return scanner.NewMux(heredocScanner{}, literalScanner{})
}
