package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/ruby"
	"github.com/dhamidi/sitter/source"
	"github.com/google/go-cmp/cmp"
)

const arithSource = `
name: arith
tokens:
  - name: IDENT
    pattern: '[a-z]+'
skip: [' +']
precedence:
  - assoc: left
    tokens: ["+"]
rules: |
  expr = expr "+" expr | IDENT .
`

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func rubyParser(t *testing.T) *parser.Parser {
	t.Helper()
	lang, err := ruby.Language()
	if err != nil {
		t.Fatalf("Language() error = %v", err)
	}
	return parser.New(lang)
}

func TestLoadLanguage(t *testing.T) {
	src := writeFile(t, "arith.yaml", arithSource)
	lang, err := loadLanguage(src)
	if err != nil {
		t.Fatalf("loadLanguage(source) error = %v", err)
	}

	var table bytes.Buffer
	if err := lang.Save(&table); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	compiled, err := loadLanguage(writeFile(t, "arith.table.yaml", table.String()))
	if err != nil {
		t.Fatalf("loadLanguage(table) error = %v", err)
	}
	if compiled.Name() != "arith" || compiled.StateCount() != lang.StateCount() {
		t.Errorf("compiled table has %d states, want %d", compiled.StateCount(), lang.StateCount())
	}
	for _, l := range []*grammar.Descriptor{lang, compiled} {
		tree, err := parser.New(l).Parse(context.Background(), source.String("a + b"), nil)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := tree.String(); got != `(expr (expr (IDENT)) "+" (expr (IDENT)))` {
			t.Errorf("tree = %s", got)
		}
	}

	if _, err := loadLanguage(writeFile(t, "junk.yaml", "colour: blue\n")); err == nil {
		t.Error("loadLanguage(junk) succeeded")
	}
	builtin, _ := ruby.Language()
	if lang, err := loadLanguage("ruby"); err != nil || lang != builtin {
		t.Errorf("loadLanguage(ruby) = %v, %v", lang, err)
	}
}

func TestLoadLanguageRubySource(t *testing.T) {
	lang, err := loadLanguage(writeFile(t, "ruby.yaml", string(ruby.Source())))
	if err != nil {
		t.Fatalf("loadLanguage() error = %v", err)
	}
	if lang.Scanner() == nil {
		t.Error("ruby grammar loaded without its scanner")
	}
}

func TestReport(t *testing.T) {
	lang, err := loadLanguage(writeFile(t, "arith.yaml", arithSource))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	report(&out, lang)
	if !strings.HasPrefix(out.String(), "arith: ") || !strings.Contains(out.String(), "no conflicts") {
		t.Errorf("report() = %q", out.String())
	}

	ambiguous := strings.Replace(arithSource, "precedence:\n  - assoc: left\n    tokens: [\"+\"]\n", "", 1)
	lang, err = loadLanguage(writeFile(t, "ambiguous.yaml", ambiguous))
	if err != nil {
		t.Fatal(err)
	}
	out.Reset()
	report(&out, lang)
	for _, want := range []string{"unresolved conflicts", `on "+"`, "reduce expr -> expr + expr"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report() = %q, want it to mention %q", out.String(), want)
		}
	}
}

func TestRunParse(t *testing.T) {
	p := rubyParser(t)
	file := writeFile(t, "a.rb", "x = 1 + 2 * 3\n")
	db := filepath.Join(t.TempDir(), "snapshots.db")
	const want = `(program (assignment (identifier) "=" (additive (integer) "+" (multiplicative (integer) "*" (integer)))))` + "\n"

	for i, text := range []string{"x = 1 + 2 * 3\n", "x = 10 + 2 * 3\n"} {
		if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
		var stdout, stderr bytes.Buffer
		err := runParse(context.Background(), p, parseRequest{filename: file, format: "sexp", storePath: db}, &stdout, &stderr)
		if err != nil {
			t.Fatalf("run %d: runParse() error = %v", i, err)
		}
		if diff := cmp.Diff(want, stdout.String()); diff != "" {
			t.Errorf("run %d: output mismatch (-want +got):\n%s", i, diff)
		}
		if stderr.Len() != 0 {
			t.Errorf("run %d: stderr = %q", i, stderr.String())
		}
	}
}

func TestRunParseErrors(t *testing.T) {
	p := rubyParser(t)
	file := writeFile(t, "bad.rb", "def (\n")
	var stdout, stderr bytes.Buffer
	if err := runParse(context.Background(), p, parseRequest{filename: file, format: "sexp"}, &stdout, &stderr); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}
	if !strings.HasPrefix(stderr.String(), file+":") {
		t.Errorf("stderr = %q, want diagnostics for %s", stderr.String(), file)
	}

	if err := runParse(context.Background(), p, parseRequest{filename: file, format: "xml"}, &stdout, &stderr); err == nil {
		t.Error("runParse() with an unknown format succeeded")
	}
}

func TestColorize(t *testing.T) {
	got := colorize(`(program (ERROR "+") (MISSING "end"))`)
	want := `(program ` + red + `(ERROR` + reset + ` "+") ` + red + `(MISSING` + reset + ` "end"))`
	if got != want {
		t.Errorf("colorize() = %q, want %q", got, want)
	}
}

func TestSession(t *testing.T) {
	p := rubyParser(t)
	s := &session{parser: p}
	for _, line := range []string{"def foo", "  1", "end"} {
		if _, err := s.append(line); err != nil {
			t.Fatalf("append(%q) error = %v", line, err)
		}
	}
	fresh, err := p.Parse(context.Background(), source.Bytes(s.text), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.tree.Equal(fresh) {
		t.Errorf("tree = %s, want %s", s.tree, fresh)
	}
	if s.tree.Root().HasError() {
		t.Errorf("tree has errors: %s", s.tree)
	}

	var out bytes.Buffer
	s.print(&out, parser.Stats{})
	if !strings.Contains(out.String(), "(method_declaration") {
		t.Errorf("print() = %q", out.String())
	}

	s.reset()
	if s.text != nil || s.tree != nil {
		t.Error("reset() kept the document")
	}
}
