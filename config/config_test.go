package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dhamidi/sitter/config"
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/grammartest"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitter.toml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := config.Load(write(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(config.Default(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	c, err := config.Load(write(t, `
[parser]
max_versions = 2
timeout = "1.5s"

[lexer]
external_policy = "external-first"

[store]
path = "/tmp/sitter.db"

[log]
verbosity = 2
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := config.Default()
	want.Parser.MaxVersions = 2
	want.Parser.Timeout = config.Duration(1500 * time.Millisecond)
	want.Lexer.ExternalPolicy = "external-first"
	want.Store.Path = "/tmp/sitter.db"
	want.Log.Verbosity = 2
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown key", "[parser]\nmax_forks = 3\n", "parser.max_forks"},
		{"bad policy", "[lexer]\nexternal_policy = \"shortest\"\n", "shortest"},
		{"bad duration", "[parser]\ntimeout = \"soon\"\n", "soon"},
		{"no versions", "[parser]\nmax_versions = 0\n", "max_versions"},
		{"syntax", "[parser\n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.text))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParserOptions(t *testing.T) {
	c := config.Default()
	c.Parser.Timeout = config.Duration(time.Second)
	opts, err := c.ParserOptions()
	if err != nil {
		t.Fatalf("ParserOptions() error = %v", err)
	}
	if len(opts) != 6 {
		t.Errorf("got %d options, want 6", len(opts))
	}

	lang, err := grammar.New(grammartest.Arith(true), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tree, err := parser.New(lang, opts...).Parse(context.Background(), source.String("a+b"), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := tree.String(); got != `(expr (expr (IDENT)) "+" (expr (IDENT)))` {
		t.Errorf("tree = %s", got)
	}
}
